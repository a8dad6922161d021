// Package route models the immutable tree of route definitions.
//
// A route is one of exactly three variants: Leaf (a path-bearing route),
// Shell (a grouping route wrapping its children in one shared navigation
// scope) and StatefulShell (a grouping route with independently stateful
// branches). Consumers discriminate with a type switch; the variant set is
// closed by the unexported marker method.
//
// Trees are validated once at construction (NewTree) and never mutated.
package route

import (
	"context"
	"net/url"
)

// Route is the closed union of route definition variants.
type Route interface {
	isRoute()
}

// RedirectState is the resolved state handed to a redirect function.
// For the top-level redirect, which runs before matching, Path and
// FullPattern are empty and Params is nil; only Location, Query and Extra
// are populated.
type RedirectState struct {
	// Location is the full current location (path + query).
	Location string

	// Path is the matched route's own path template.
	Path string

	// FullPattern is the matched route's full pattern path from the root.
	FullPattern string

	// Name is the matched route's name, if any.
	Name string

	// Params are the accumulated decoded path parameters.
	Params map[string]string

	// Query are the parsed query parameters of the location.
	Query url.Values

	// Extra is the caller's opaque payload, preserved across redirects.
	Extra any
}

// RedirectFunc rewrites a resolved location.
// Returning "" means no redirect. The function may block on ctx (an
// asynchronous guard); the resolver applies its result under a generation
// check so a superseded resolution is discarded rather than raced.
type RedirectFunc func(ctx context.Context, s RedirectState) (string, error)

// Leaf is a path-bearing route definition.
// Root-level paths (no Leaf ancestor) must start with "/"; sub-route paths
// are relative to the parent's matched path and must not start or end
// with "/".
type Leaf struct {
	// Path is the segment template, e.g. "family/:fid".
	Path string

	// Name optionally identifies the route for named navigation.
	// Names must be unique across the whole tree.
	Name string

	// Redirect optionally rewrites the location when this route matches.
	Redirect RedirectFunc

	// Scope optionally targets an explicit navigation scope, overriding
	// the nearest enclosing shell's scope.
	Scope ScopeID

	// Children are matched against the location remainder, in order.
	Children []Route
}

func (*Leaf) isRoute() {}

// Shell groups its children under one shared navigation scope.
// All descendants render onto that scope unless they declare an explicit
// different Scope.
type Shell struct {
	// Scope is the shared navigation scope for all descendants.
	Scope ScopeID

	// Redirect optionally rewrites the location when this route matches.
	Redirect RedirectFunc

	// Children are matched against the location remainder, in order.
	Children []Route
}

func (*Shell) isRoute() {}

// StatefulShell groups one or more branches, each with an independent
// navigation scope and preserved per-branch stack.
type StatefulShell struct {
	// Branches are the shell's navigation branches, in display order.
	// At least one is required.
	Branches []*Branch

	// Redirect optionally rewrites the location when this route matches.
	Redirect RedirectFunc

	// Preload causes every branch to be resolved to its default location
	// when the shell is first reached, not just the active one.
	Preload bool
}

func (*StatefulShell) isRoute() {}

// Branch is one independently stateful subtree of a StatefulShell.
type Branch struct {
	// Scope is the branch's own navigation scope.
	Scope ScopeID

	// Default is the branch's initial location. When empty it is derived
	// from the branch's first leaf descendant.
	Default string

	// Routes is the branch's route subtree.
	Routes []Route
}

// ChildrenOf returns a route's ordered child routes.
// For a StatefulShell this is the concatenation of all branch subtrees.
func ChildrenOf(r Route) []Route {
	switch r := r.(type) {
	case *Leaf:
		return r.Children
	case *Shell:
		return r.Children
	case *StatefulShell:
		var all []Route
		for _, b := range r.Branches {
			all = append(all, b.Routes...)
		}
		return all
	}
	return nil
}

// RedirectOf returns a route's redirect function, nil if none.
func RedirectOf(r Route) RedirectFunc {
	switch r := r.(type) {
	case *Leaf:
		return r.Redirect
	case *Shell:
		return r.Redirect
	case *StatefulShell:
		return r.Redirect
	}
	return nil
}

// IsShellVariant reports whether r is a Shell or StatefulShell.
func IsShellVariant(r Route) bool {
	switch r.(type) {
	case *Shell, *StatefulShell:
		return true
	}
	return false
}

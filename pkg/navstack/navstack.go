// Package navstack is the imperative navigation façade over the route tree,
// matcher, redirector and shell state: Go/Push/Pop/Replace by location or by
// route name, with correct delegation across nested navigation scopes.
//
// # Usage
//
//	nav, err := navstack.New(navstack.Config{
//	    Routes: []route.Route{
//	        &route.Leaf{Path: "/", Name: "home", Children: []route.Route{
//	            &route.Leaf{Path: "family/:fid", Name: "family"},
//	        }},
//	    },
//	})
//	nav.Go(ctx, "/family/f2")
//	nav.PushNamed(ctx, "family", map[string]string{"fid": "f3"})
//
// Errors that originate from user-controlled input (unknown locations,
// redirect loops) resolve to an error match list for the rendering layer.
// Host misuse of the API (pushing a shell route, popping past the last
// entry, cross-branch pushes, bad named-route arguments) panics.
//
// All operations are expected to run on the host's UI/event thread; the
// only suspension point is the redirect pipeline, which discards superseded
// results via a generation counter instead of locking.
package navstack

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/vango-dev/navstack/pkg/match"
	"github.com/vango-dev/navstack/pkg/redirect"
	"github.com/vango-dev/navstack/pkg/route"
	"github.com/vango-dev/navstack/pkg/shell"
)

// Config configures a Navigator.
type Config struct {
	// Routes is the top-level route tree.
	Routes []route.Route

	// Redirect is the top-level redirect, evaluated before any route-level
	// redirect on every resolution iteration. Optional.
	Redirect route.RedirectFunc

	// RedirectLimit bounds redirect iterations; 0 means redirect.DefaultLimit.
	RedirectLimit int

	// Scopes maps scope ids to live host navigators for pop delegation.
	Scopes *route.ScopeRegistry

	// RootScope is the outermost navigation scope's id.
	RootScope route.ScopeID

	// OnExit is the platform fallback invoked when nothing can pop.
	OnExit func()

	// Logger receives structured navigation logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Navigator owns the current match list and applies navigation operations
// to it through the full match + redirect pipeline.
type Navigator struct {
	tree      *route.Tree
	resolver  *redirect.Resolver
	pipe      *redirect.Pipeline
	shells    *shell.Store
	scopes    *route.ScopeRegistry
	rootScope route.ScopeID
	onExit    func()
	log       *slog.Logger
	metrics   *navMetrics

	cur       *match.List
	listeners map[int]func(*match.List)
	nextID    int
}

// New validates the route tree and builds a Navigator.
// Tree construction errors are returned so the host fails fast at startup.
func New(cfg Config) (*Navigator, error) {
	tree, err := route.NewTree(cfg.Routes)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scopes := cfg.Scopes
	if scopes == nil {
		scopes = route.NewScopeRegistry()
	}

	metrics := getMetrics()
	resolver := &redirect.Resolver{
		Tree:     tree,
		TopLevel: cfg.Redirect,
		Limit:    cfg.RedirectLimit,
		OnHop: func(from, to string) {
			metrics.redirects.Inc()
			logger.Debug("redirect hop", "from", from, "to", to)
		},
	}

	return &Navigator{
		tree:      tree,
		resolver:  resolver,
		pipe:      &redirect.Pipeline{Resolver: resolver},
		shells:    shell.NewStore(tree, resolver),
		scopes:    scopes,
		rootScope: cfg.RootScope,
		onExit:    cfg.OnExit,
		log:       logger,
		metrics:   metrics,
		listeners: make(map[int]func(*match.List)),
	}, nil
}

// NavOption configures a single navigation operation.
type NavOption func(*navOptions)

type navOptions struct {
	extra any
	query url.Values
}

// WithExtra attaches an opaque payload, forwarded unchanged to the resolved
// match state and preserved across redirects.
func WithExtra(extra any) NavOption {
	return func(o *navOptions) { o.extra = extra }
}

// WithQuery appends query parameters to a named navigation's location.
func WithQuery(q url.Values) NavOption {
	return func(o *navOptions) { o.query = q }
}

func buildOptions(opts []NavOption) navOptions {
	var o navOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Tree returns the validated route tree.
func (n *Navigator) Tree() *route.Tree { return n.tree }

// ShellState returns the runtime state of a stateful shell, creating it on
// first use.
func (n *Navigator) ShellState(sh *route.StatefulShell) *shell.State {
	return n.shells.Get(sh)
}

// Shells returns the shell state store, for snapshot and restore tooling.
func (n *Navigator) Shells() *shell.Store {
	return n.shells
}

// Current returns the current match list, nil before the first navigation.
func (n *Navigator) Current() *match.List { return n.cur }

// Location returns the canonical serialization of the current match list.
func (n *Navigator) Location() string {
	if n.cur == nil {
		return ""
	}
	return n.cur.Location()
}

// AddListener registers a change callback fired once per externally visible
// mutation of the match list. Redirect iterations are internal and do not
// fire. The returned function removes the listener.
func (n *Navigator) AddListener(fn func(*match.List)) func() {
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() { delete(n.listeners, id) }
}

// Go re-runs the full match + redirect pipeline for location, replacing the
// entire current navigation state.
func (n *Navigator) Go(ctx context.Context, location string, opts ...NavOption) *match.List {
	o := buildOptions(opts)
	n.metrics.navigations.WithLabelValues("go").Inc()

	out := n.resolve(ctx, location, o.extra)
	if out == nil {
		return n.cur
	}
	n.apply(ctx, out)
	return n.cur
}

// GoNamed resolves a route name to a concrete location and behaves as Go.
// Unknown names and parameter sets that do not exactly match the pattern
// are host programming errors and panic.
func (n *Navigator) GoNamed(ctx context.Context, name string, params map[string]string, opts ...NavOption) *match.List {
	return n.Go(ctx, n.locationForName(name, params, opts), opts...)
}

// Push resolves location through the pipeline and appends its final match
// (carrying the full resolved sub-path) onto the current stack.
// While a stateful shell branch is active the target must be a descendant
// of that branch; violations panic with a CrossBranchError.
func (n *Navigator) Push(ctx context.Context, location string, opts ...NavOption) *match.List {
	o := buildOptions(opts)
	n.metrics.navigations.WithLabelValues("push").Inc()

	resolved := n.resolve(ctx, location, o.extra)
	if resolved == nil {
		return n.cur
	}
	if resolved.IsError() || n.cur == nil || n.cur.Len() == 0 {
		n.apply(ctx, resolved)
		return n.cur
	}

	if st := n.activeShell(); st != nil {
		if err := st.CheckPush(resolved.Last().Route, n.rootScope); err != nil {
			panic(err)
		}
	}

	n.cur.Push(imperativeMatch(resolved))
	n.notify()
	return n.cur
}

// PushNamed resolves a route name and behaves as Push.
func (n *Navigator) PushNamed(ctx context.Context, name string, params map[string]string, opts ...NavOption) *match.List {
	return n.Push(ctx, n.locationForName(name, params, opts), opts...)
}

// Replace resolves location through the pipeline and overwrites the last
// entry of the current stack, preserving stack depth.
func (n *Navigator) Replace(ctx context.Context, location string, opts ...NavOption) *match.List {
	o := buildOptions(opts)
	n.metrics.navigations.WithLabelValues("replace").Inc()

	resolved := n.resolve(ctx, location, o.extra)
	if resolved == nil {
		return n.cur
	}
	if resolved.IsError() || n.cur == nil || n.cur.Len() == 0 {
		n.apply(ctx, resolved)
		return n.cur
	}

	n.cur.ReplaceLast(imperativeMatch(resolved))
	n.notify()
	return n.cur
}

// ReplaceNamed resolves a route name and behaves as Replace.
func (n *Navigator) ReplaceNamed(ctx context.Context, name string, params map[string]string, opts ...NavOption) *match.List {
	return n.Replace(ctx, n.locationForName(name, params, opts), opts...)
}

// CanPop reports whether any navigation scope, from the tail of the current
// match list toward the root, can pop.
func (n *Navigator) CanPop() bool {
	return n.delegate(false)
}

// Pop delegates to the nearest navigation scope that reports it can pop,
// walking the current match list from the tail toward the root and
// short-circuiting on the first scope that pops. When every scope declines
// the core stack pops, then the root scope; if nothing can pop the platform
// fallback (Config.OnExit) is signalled and Pop reports false.
func (n *Navigator) Pop() bool {
	if n.delegate(true) {
		return true
	}
	if n.onExit != nil {
		n.onExit()
	}
	return false
}

// SwitchBranch activates a branch of a stateful shell, preserving the
// outgoing branch's stack and restoring the incoming branch's stored stack
// unless resetToDefault re-derives its default location.
func (n *Navigator) SwitchBranch(ctx context.Context, sh *route.StatefulShell, index int, resetToDefault bool) *match.List {
	st := n.shells.Get(sh)
	if n.cur != nil && containsShell(n.cur, sh) {
		st.Save(n.cur)
	}

	list := st.ActivateBranch(ctx, index, resetToDefault)
	n.metrics.branchSwitches.Inc()
	n.cur = list
	n.notify()
	return n.cur
}

// ResetShell clears every branch of a stateful shell and activates branch 0
// at its default location.
func (n *Navigator) ResetShell(ctx context.Context, sh *route.StatefulShell) *match.List {
	list := n.shells.Get(sh).Reset(ctx)
	n.cur = list
	n.notify()
	return n.cur
}

// resolve runs Find and the generation-guarded redirect pipeline.
// It returns nil when a newer navigation superseded this one.
func (n *Navigator) resolve(ctx context.Context, location string, extra any) *match.List {
	list, err := match.Find(n.tree, location, extra)
	if err != nil {
		n.metrics.matchFailures.Inc()
		n.log.Warn("no match for location", "location", location)
		list = match.NewErrorList(location, err)
		list.SetExtra(extra)
	}

	var out *match.List
	if !n.pipe.Resolve(ctx, list, func(r *match.List) { out = r }) {
		n.log.Warn("navigation superseded, result discarded", "location", location)
		return nil
	}
	return out
}

// apply installs a wholesale new match list: shell states are synchronized
// (active branch, preload on first reach), then listeners fire once.
func (n *Navigator) apply(ctx context.Context, list *match.List) {
	if list.IsError() {
		var loop *redirect.LoopError
		if errors.As(list.Err(), &loop) {
			n.metrics.redirectLoops.Inc()
		}
		n.log.Error("navigation resolved to error state",
			"location", list.URI(), "err", list.Err())
	}

	n.syncShells(ctx, list)
	n.cur = list
	n.notify()
}

// syncShells updates every stateful shell the list passes through: the
// branch the location landed in becomes active, and shells reached for the
// first time run their preload.
func (n *Navigator) syncShells(ctx context.Context, list *match.List) {
	matches := list.Matches()
	for i, m := range matches {
		sh, ok := m.Route.(*route.StatefulShell)
		if !ok {
			continue
		}
		first := !n.shells.Has(sh)
		st := n.shells.Get(sh)

		if i+1 < len(matches) {
			if idx, ok := shell.BranchIndexWithin(n.tree, sh, matches[i+1].Route); ok {
				st.SetActive(idx, list)
			}
		}
		if first {
			st.Preload(ctx, n.shells)
		}
	}
}

// activeShell returns the runtime state of the deepest stateful shell in
// the current match list, nil when none is active.
func (n *Navigator) activeShell() *shell.State {
	if n.cur == nil {
		return nil
	}
	var found *route.StatefulShell
	for _, m := range n.cur.Matches() {
		if sh, ok := m.Route.(*route.StatefulShell); ok {
			found = sh
		}
	}
	if found == nil {
		return nil
	}
	return n.shells.Get(found)
}

// delegate implements the shared scope-delegation walk for Pop/CanPop.
// With mutate false it only answers whether some scope could pop.
func (n *Navigator) delegate(mutate bool) bool {
	if n.cur == nil {
		return false
	}

	matches := n.cur.Matches()
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m.Route == nil {
			continue
		}
		for _, id := range n.scopeCandidates(m.Route) {
			h := n.scopes.Lookup(id)
			if h == nil || !h.CanPop() {
				continue
			}
			if !mutate {
				return true
			}
			if h.Pop() {
				n.metrics.popsDelegated.WithLabelValues("scoped").Inc()
				return true
			}
		}
	}

	// Every nested scope declined: the core stack is the root scope's state.
	if n.cur.CanPop() {
		if mutate {
			n.cur.Pop()
			n.metrics.popsDelegated.WithLabelValues("root").Inc()
			n.notify()
		}
		return true
	}
	if h := n.scopes.Lookup(n.rootScope); h != nil && h.CanPop() {
		if mutate {
			return h.Pop()
		}
		return true
	}
	return false
}

// scopeCandidates lists the scope ids a match may delegate to: an explicit
// leaf scope, a shell's shared scope, or a stateful shell's active branch
// scope.
func (n *Navigator) scopeCandidates(r route.Route) []route.ScopeID {
	switch r := r.(type) {
	case *route.Leaf:
		if r.Scope != "" {
			return []route.ScopeID{r.Scope}
		}
	case *route.Shell:
		if r.Scope != "" {
			return []route.ScopeID{r.Scope}
		}
	case *route.StatefulShell:
		st := n.shells.Get(r)
		if scope := r.Branches[st.ActiveIndex()].Scope; scope != "" {
			return []route.ScopeID{scope}
		}
	}
	return nil
}

// locationForName resolves a named route to a location; failures are host
// programming errors.
func (n *Navigator) locationForName(name string, params map[string]string, opts []NavOption) string {
	o := buildOptions(opts)
	loc, err := n.tree.LocationForName(name, params, o.query)
	if err != nil {
		panic(err)
	}
	return loc
}

// notify fires every listener once with the current list.
func (n *Navigator) notify() {
	for _, fn := range n.listeners {
		fn(n.cur)
	}
}

// imperativeMatch wraps a resolved list as a pushable stack entry carrying
// the full resolved sub-path.
func imperativeMatch(resolved *match.List) *match.Match {
	tail := resolved.Last()
	return &match.Match{
		Route:       tail.Route,
		Location:    tail.Location,
		FullPattern: tail.FullPattern,
		Params:      tail.Params,
		Encoded:     tail.Encoded,
		Query:       tail.Query,
		Pushed:      resolved,
	}
}

// containsShell reports whether the list passes through sh.
func containsShell(l *match.List, sh *route.StatefulShell) bool {
	for _, m := range l.Matches() {
		if m.Route == route.Route(sh) {
			return true
		}
	}
	return false
}

// Package match models resolved navigation state: a RouteMatch binds one
// route definition to a sub-segment of a location, and a List is the ordered
// stack of matches forming one navigation stack.
//
// Lists are created by Find on every location parse, mutated in place by
// Push/Pop/ReplaceLast, and replaced wholesale when a new location resolves.
package match

import (
	"fmt"
	"net/url"

	"github.com/vango-dev/navstack/pkg/pathspec"
	"github.com/vango-dev/navstack/pkg/route"
)

// ErrorKey is the stable key of a match representing an error surface.
const ErrorKey = "error"

// Match binds one route definition to a matched sub-location.
type Match struct {
	// Route is the originating route definition. Nil for error matches.
	Route route.Route

	// Location is the matched sub-location from the root, e.g. "/family/f2".
	Location string

	// FullPattern is the route's full pattern path, e.g. "/family/:fid".
	FullPattern string

	// Params are the accumulated decoded path parameters.
	Params map[string]string

	// Encoded are the raw (percent-encoded) path parameter values.
	Encoded map[string]string

	// Query are the location's parsed query parameters, shared by every
	// match in a list.
	Query url.Values

	// Key is a stable identity used by the rendering layer for page
	// identity and animations. Derived from the full pattern path, or
	// ErrorKey for error matches, or assigned with a push suffix.
	Key string

	// Err is set when this match represents an error surface.
	Err error

	// Pushed is the nested match list carried by an imperatively pushed
	// entry, nil for matches produced by the matcher.
	Pushed *List
}

// QueryParam returns the single-valued view of a query parameter: the first
// value, or "" when absent. Use Query directly for the multi-valued view.
func (m *Match) QueryParam(key string) string {
	if vs := m.Query[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// List is an ordered stack of matches representing one navigation stack.
// The empty List is a valid "not yet resolved" sentinel.
type List struct {
	tree    *route.Tree
	matches []*Match
	uri     string
	query   url.Values
	extra   any
	pushSeq map[string]int
}

// NewErrorList builds a single-entry error list for a location that failed
// to resolve. The rendering layer shows it as a "not found" or error
// surface instead of crashing.
func NewErrorList(location string, err error) *List {
	return &List{
		matches: []*Match{{Location: location, Key: ErrorKey, Err: err}},
		uri:     location,
		pushSeq: make(map[string]int),
	}
}

// Matches returns the match stack, root first.
func (l *List) Matches() []*Match { return l.matches }

// Len returns the stack depth.
func (l *List) Len() int { return len(l.matches) }

// Last returns the top of the stack, nil when empty.
func (l *List) Last() *Match {
	if len(l.matches) == 0 {
		return nil
	}
	return l.matches[len(l.matches)-1]
}

// Extra returns the caller's opaque payload.
func (l *List) Extra() any { return l.extra }

// SetExtra replaces the opaque payload. Used by the redirector to preserve
// the payload across re-matching.
func (l *List) SetExtra(extra any) { l.extra = extra }

// Err returns the error carried by an error list, nil otherwise.
func (l *List) Err() error {
	for _, m := range l.matches {
		if m.Err != nil {
			return m.Err
		}
	}
	return nil
}

// IsError reports whether this is an error list.
func (l *List) IsError() bool { return l.Err() != nil }

// URI returns the canonical resolved location this list was matched from.
func (l *List) URI() string { return l.uri }

// Push appends a match to the stack and assigns its disambiguating key.
// Only leaf routes may be pushed; pushing a shell variant is host misuse and
// panics. Plain (non-imperative) matches must descend from the current tail
// in the route tree.
func (l *List) Push(m *Match) {
	if m.Route != nil && route.IsShellVariant(m.Route) {
		panic(fmt.Sprintf("navstack: cannot push shell route %q onto a match list", m.FullPattern))
	}
	if m.Pushed == nil && l.tree != nil {
		if tail := l.Last(); tail != nil && tail.Route != nil && tail.Err == nil {
			if !l.tree.IsAncestor(tail.Route, m.Route) {
				panic(fmt.Sprintf("navstack: pushed route %q is not a descendant of %q", m.FullPattern, tail.FullPattern))
			}
		}
	}

	base := m.FullPattern
	if base == "" {
		base = m.Location
	}
	l.pushSeq[base]++
	m.Key = fmt.Sprintf("%s-p%d", base, l.pushSeq[base])
	l.matches = append(l.matches, m)
}

// Pop removes the top of the stack.
// Popping the last remaining entry is a programming error and panics.
func (l *List) Pop() {
	if len(l.matches) <= 1 {
		panic("navstack: cannot pop the last match from a match list")
	}
	l.matches[len(l.matches)-1] = nil
	l.matches = l.matches[:len(l.matches)-1]
}

// CanPop reports whether the stack holds more than one entry.
func (l *List) CanPop() bool { return len(l.matches) > 1 }

// ReplaceLast overwrites the top of the stack in place, preserving depth.
// A replacement without a key inherits the replaced entry's key.
func (l *List) ReplaceLast(m *Match) {
	if len(l.matches) == 0 {
		panic("navstack: cannot replace on an empty match list")
	}
	if m.Key == "" {
		m.Key = l.matches[len(l.matches)-1].Key
	}
	l.matches[len(l.matches)-1] = m
}

// Location serializes the list back to a canonical location string: the
// nested list's location when the tail is an imperatively pushed entry,
// otherwise the last non-redirect-carrying match's full location.
func (l *List) Location() string {
	tail := l.Last()
	if tail == nil {
		return ""
	}
	if tail.Pushed != nil {
		return tail.Pushed.Location()
	}

	_, query, fragment := pathspec.Canonicalize(l.uri)
	for i := len(l.matches) - 1; i >= 0; i-- {
		m := l.matches[i]
		if m.Err != nil || m.Route == nil || m.Pushed != nil {
			continue
		}
		if route.IsShellVariant(m.Route) {
			// Shell matches share their parent's location.
			continue
		}
		if route.RedirectOf(m.Route) != nil {
			continue
		}
		return pathspec.JoinLocation(m.Location, query, fragment)
	}
	return l.uri
}

package match

import (
	"fmt"
	"net/url"

	"github.com/vango-dev/navstack/pkg/pathspec"
	"github.com/vango-dev/navstack/pkg/route"
)

// NoMatchError reports that no route subtree fully matched a location.
// It is recoverable: the façade converts it into an error list so the host
// can render a "not found" surface.
type NoMatchError struct {
	Location string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("navstack: no routes for location %q", e.Location)
}

// Find resolves a location against the route tree into an ordered match
// list, or fails with a *NoMatchError carrying the offending location.
//
// The location is canonicalized (one trailing "/" stripped, query and
// fragment preserved), then the tree is walked depth-first in declaration
// order: at each level the first sibling whose pattern matches the remaining
// suffix as a prefix is tried; if its subtree cannot consume the remainder
// the walk backs out and tries the next sibling. Query parameters are parsed
// once and shared by every match in the list.
func Find(t *route.Tree, location string, extra any) (*List, error) {
	path, query, fragment := pathspec.Canonicalize(location)
	canonical := pathspec.JoinLocation(path, query, fragment)

	// Best-effort parse: a malformed query never fails navigation.
	qv, _ := url.ParseQuery(query)

	matches, ok := matchRoutes(t, t.Routes(), pathspec.SplitSegments(path), nil, nil, nil, qv)
	if !ok {
		return nil, &NoMatchError{Location: canonical}
	}

	return &List{
		tree:    t,
		matches: matches,
		uri:     canonical,
		query:   qv,
		extra:   extra,
		pushSeq: make(map[string]int),
	}, nil
}

// matchRoutes tries candidate routes in declaration order against the
// remaining raw segments. consumed holds the already-matched segments
// (template casing); params/encoded accumulate down the chain.
func matchRoutes(t *route.Tree, routes []route.Route, segs, consumed []string, params, encoded map[string]string, qv url.Values) ([]*Match, bool) {
	for _, r := range routes {
		switch r := r.(type) {
		case *route.Leaf:
			res, ok := t.Spec(r).MatchSegments(segs)
			if !ok {
				continue
			}

			mergedParams := mergeParams(params, res.Params)
			mergedEncoded := mergeParams(encoded, res.Encoded)
			newConsumed := appendSegments(consumed, res.Consumed)

			m := &Match{
				Route:       r,
				Location:    pathspec.JoinSegments(newConsumed),
				FullPattern: t.FullPattern(r),
				Params:      mergedParams,
				Encoded:     mergedEncoded,
				Query:       qv,
				Key:         t.FullPattern(r),
			}

			if len(res.Rest) == 0 {
				return []*Match{m}, true
			}
			if len(r.Children) == 0 {
				// Childless routes must consume the whole remainder.
				continue
			}
			if sub, ok := matchRoutes(t, r.Children, res.Rest, newConsumed, mergedParams, mergedEncoded, qv); ok {
				return append([]*Match{m}, sub...), true
			}
			// No descendant consumed the remainder; back out and try the
			// next sibling.

		case *route.Shell, *route.StatefulShell:
			// Shell variants consume no segments; they appear in the list
			// when some descendant matches.
			sub, ok := matchRoutes(t, route.ChildrenOf(r), segs, consumed, params, encoded, qv)
			if !ok {
				continue
			}
			m := &Match{
				Route:       r,
				Location:    pathspec.JoinSegments(consumed),
				FullPattern: t.FullPattern(r),
				Params:      mergeParams(params, nil),
				Encoded:     mergeParams(encoded, nil),
				Query:       qv,
				Key:         shellKey(t, r),
			}
			return append([]*Match{m}, sub...), true
		}
	}
	return nil, false
}

// shellKey derives a stable key for a shell match.
func shellKey(t *route.Tree, r route.Route) string {
	pattern := t.FullPattern(r)
	if pattern == "" {
		pattern = "/"
	}
	if _, ok := r.(*route.StatefulShell); ok {
		return "statefulshell:" + pattern
	}
	return "shell:" + pattern
}

// mergeParams copies base and overlays add. A copy is always returned so
// sibling backtracking never observes a polluted map.
func mergeParams(base, add map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(add))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range add {
		out[k] = v
	}
	return out
}

// appendSegments concatenates segment slices without aliasing the input.
func appendSegments(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// Package redirect applies top-level and route-level redirects to a resolved
// match list until a fixpoint, with loop detection and a generation guard for
// superseded resolutions.
package redirect

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/navstack/pkg/match"
	"github.com/vango-dev/navstack/pkg/pathspec"
	"github.com/vango-dev/navstack/pkg/route"
)

// DefaultLimit bounds redirect iterations per resolution.
const DefaultLimit = 10

// tracerName identifies the resolver's otel tracer.
const tracerName = "navstack"

// LoopError reports a redirect configuration that never reached a fixpoint
// within the limit. It is surfaced through an error match list, never thrown
// across the API boundary.
type LoopError struct {
	Limit    int
	Location string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("navstack: redirect loop detected at %q (limit %d)", e.Location, e.Limit)
}

// Resolver applies redirects until the match list is stable.
type Resolver struct {
	// Tree is the route tree used for re-matching redirected locations.
	Tree *route.Tree

	// TopLevel is the whole-tree redirect, evaluated before any
	// route-level redirect on every iteration. Optional.
	TopLevel route.RedirectFunc

	// Limit bounds iterations; 0 means DefaultLimit.
	Limit int

	// OnHop is invoked for every redirect hop taken. Optional.
	OnHop func(from, to string)

	// Tracer overrides the otel tracer. Nil uses the global provider.
	Tracer trace.Tracer
}

// Resolve loops until no redirect fires:
//
//  1. The top-level redirect is evaluated against the current location; a
//     new location re-runs the matcher and restarts the loop.
//  2. Otherwise the first redirect-carrying match, walking from the root
//     forward, is evaluated — only that one per iteration.
//
// A redirect returning "" or the byte-identical current location counts as
// no redirect. Exceeding the limit, a redirect error, or a failed re-match
// all resolve to an error list; Resolve never panics for user-input errors.
// The caller's extra payload is preserved across iterations.
func (r *Resolver) Resolve(ctx context.Context, list *match.List) *match.List {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	ctx, span := tracer.Start(ctx, "navstack.resolve",
		trace.WithAttributes(attribute.String("navstack.location", list.URI())))
	defer span.End()

	cur := list
	for i := 0; i < limit; i++ {
		loc := cur.URI()

		next, err := r.step(ctx, cur, loc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return match.NewErrorList(loc, err)
		}
		if next == "" {
			span.SetAttributes(
				attribute.Int("navstack.redirects", i),
				attribute.String("navstack.resolved", loc),
			)
			return cur
		}

		if r.OnHop != nil {
			r.OnHop(loc, next)
		}
		cur, err = r.rematch(next, cur.Extra())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return match.NewErrorList(next, err)
		}
	}

	err := &LoopError{Limit: limit, Location: cur.URI()}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return match.NewErrorList(cur.URI(), err)
}

// step evaluates one iteration and returns the new location, "" when no
// redirect fired.
func (r *Resolver) step(ctx context.Context, cur *match.List, loc string) (string, error) {
	if r.TopLevel != nil {
		next, err := r.TopLevel(ctx, topLevelState(loc, cur.Extra()))
		if err != nil {
			return "", err
		}
		if next != "" && next != loc {
			return next, nil
		}
	}

	for _, m := range cur.Matches() {
		if m.Route == nil {
			continue
		}
		fn := route.RedirectOf(m.Route)
		if fn == nil {
			continue
		}
		next, err := fn(ctx, matchState(m, loc, cur.Extra()))
		if err != nil {
			return "", err
		}
		if next != "" && next != loc {
			return next, nil
		}
		// Only the first redirect-carrying match per iteration, even when
		// deeper matches also define redirects.
		break
	}
	return "", nil
}

// rematch re-runs the matcher on a redirected location.
func (r *Resolver) rematch(location string, extra any) (*match.List, error) {
	list, err := match.Find(r.Tree, location, extra)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// topLevelState builds the redirect state for the pre-match top-level
// redirect: no path or pattern, query parameters only.
func topLevelState(location string, extra any) route.RedirectState {
	_, query, _ := pathspec.Canonicalize(location)
	qv, _ := url.ParseQuery(query)
	return route.RedirectState{
		Location: location,
		Query:    qv,
		Extra:    extra,
	}
}

// matchState builds the redirect state for a route-level redirect.
func matchState(m *match.Match, location string, extra any) route.RedirectState {
	s := route.RedirectState{
		Location:    location,
		FullPattern: m.FullPattern,
		Params:      m.Params,
		Query:       m.Query,
		Extra:       extra,
	}
	if l, ok := m.Route.(*route.Leaf); ok {
		s.Path = l.Path
		s.Name = l.Name
	}
	return s
}

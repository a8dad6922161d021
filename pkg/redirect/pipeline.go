package redirect

import (
	"context"

	"go.uber.org/atomic"

	"github.com/vango-dev/navstack/pkg/match"
)

// Pipeline guards a Resolver with a monotonically increasing generation
// counter so that a superseded resolution never overwrites state already
// advanced by a newer one. Redirect functions may block (asynchronous
// guards); a newly arriving navigation supersedes the in-flight one by
// bumping the generation — stale results are discarded, not aborted.
type Pipeline struct {
	Resolver *Resolver

	gen atomic.Uint64
}

// Resolve runs one generation-guarded resolution and invokes apply with the
// result, unless a newer resolution started meanwhile — then the result is
// dropped and Resolve returns false.
func (p *Pipeline) Resolve(ctx context.Context, list *match.List, apply func(*match.List)) bool {
	gen := p.gen.Inc()
	result := p.Resolver.Resolve(ctx, list)
	if p.gen.Load() != gen {
		return false
	}
	apply(result)
	return true
}

// ResolveAsync runs Resolve on its own goroutine for hosts that must not
// block their event thread on an asynchronous redirect. apply runs on that
// goroutine; the host is responsible for marshalling back to its own thread.
func (p *Pipeline) ResolveAsync(ctx context.Context, list *match.List, apply func(*match.List)) {
	go p.Resolve(ctx, list, apply)
}

// Supersede invalidates any in-flight resolution without starting a new one.
func (p *Pipeline) Supersede() {
	p.gen.Inc()
}

// Generation returns the current generation counter.
func (p *Pipeline) Generation() uint64 {
	return p.gen.Load()
}

// Package task provides the cooperative scheduling primitives spec.md
// §4.8 and §9 describe: spawn/wait-for-child/collect/drain-all, rendered
// as goroutines, channels, and context.Context rather than literal
// stackful coroutines, per spec.md §9's re-architecture note. A task
// returns Done or an error; parents either own their children (the
// Group reaps them) or collect them explicitly before returning, which
// is how the single-writer-per-shard invariant in spec.md §3 survives
// the translation to Go.
package task

import (
	"context"
	"sync"
)

// Result is what a spawned task finishes with.
type Result struct {
	Err error
}

// Handle is a reference to one spawned child. Unowned children must be
// joined by the parent via Group.Collect or Group.WaitForChild before
// the parent returns; owned children are reaped by the Group itself.
type Handle struct {
	done chan Result
	own  bool
}

// Group is a parent's view of its spawned children: a bounded or
// unbounded set of goroutines the parent can wait on, drain, and
// collect results from one at a time.
type Group struct {
	wg       sync.WaitGroup
	finished chan *Handle
}

// NewGroup creates an empty task group.
func NewGroup() *Group {
	return &Group{
		finished: make(chan *Handle, 4096),
	}
}

// Spawn runs fn in a new goroutine. If own is true the group reaps the
// child's result itself once finished (the parent never needs to
// Collect it); if false, the parent must eventually call Collect or
// WaitForChild to observe it, mirroring spec.md §4.8's own=true/false
// flag without keeping a hidden reference count.
func (g *Group) Spawn(ctx context.Context, fn func(ctx context.Context) error, own bool) *Handle {
	h := &Handle{done: make(chan Result, 1), own: own}

	g.wg.Add(1)

	go func() {
		err := fn(ctx)
		h.done <- Result{Err: err}

		if own {
			// Self-reaped: nobody will Collect this child, so the
			// group's join point shouldn't wait on it either.
			g.wg.Done()
		} else {
			g.finished <- h
		}
	}()

	return h
}

// WaitForChild blocks until any unowned child completes and returns its
// result. It returns ctx.Err() if ctx is cancelled first.
func (g *Group) WaitForChild(ctx context.Context) (Result, error) {
	select {
	case h := <-g.finished:
		r := <-h.done
		g.wg.Done()

		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Collect non-blockingly drains one finished unowned child's result, if
// any is available.
func (g *Group) Collect() (Result, bool) {
	select {
	case h := <-g.finished:
		r := <-h.done
		g.wg.Done()

		return r, true
	default:
		return Result{}, false
	}
}

// DrainAll blocks until every outstanding child — owned and unowned
// alike — has completed, collecting (and discarding) any unowned
// results along the way. Per spec.md §4.3/§4.4, every state transition
// is preceded by a DrainAll so a transition never observes a
// half-applied batch of child tasks.
func (g *Group) DrainAll(ctx context.Context) error {
	allDone := make(chan struct{})

	go func() {
		g.wg.Wait()
		close(allDone)
	}()

	for {
		select {
		case <-allDone:
			// Drain any results that arrived exactly as wg hit zero.
			for {
				if _, ok := g.Collect(); !ok {
					return nil
				}
			}
		case h := <-g.finished:
			<-h.done
			g.wg.Done()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

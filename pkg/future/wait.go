package future

import "context"

// WaitAny blocks until at least one of futs is settled or cancelled, then
// returns every future in futs that has settled by wake-up time
// (first-completed semantics: it never waits for the whole set). An empty
// set returns immediately. If ctx is cancelled first, WaitAny returns
// ctx.Err() without waiting further.
func WaitAny[T any](ctx context.Context, futs []*Future[T]) ([]*Future[T], error) {
	if len(futs) == 0 {
		return nil, nil
	}

	// Fast path: something already settled, no goroutines needed.
	if done := collectSettled(futs, nil); len(done) > 0 {
		return done, nil
	}

	first := make(chan *Future[T], 1)
	stop := make(chan struct{})
	defer close(stop)

	for _, f := range futs {
		go func(f *Future[T]) {
			select {
			case <-f.Done():
				select {
				case first <- f:
				case <-stop:
				}
			case <-stop:
			}
		}(f)
	}

	select {
	case f := <-first:
		// Sweep the rest of the set for anything that settled in the
		// same wake-up window.
		return collectSettled(futs, f), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitAll blocks until every future in futs is settled or cancelled, or
// ctx is cancelled. Used by teardown to let cancellations propagate.
func WaitAll[T any](ctx context.Context, futs []*Future[T]) error {
	for _, f := range futs {
		select {
		case <-f.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// collectSettled returns first (if non-nil) followed by every other future
// in futs whose Done channel is already closed.
func collectSettled[T any](futs []*Future[T], first *Future[T]) []*Future[T] {
	var done []*Future[T]
	if first != nil {
		done = append(done, first)
	}
	for _, f := range futs {
		if f == first {
			continue
		}
		if f.settled() {
			done = append(done, f)
		}
	}
	return done
}

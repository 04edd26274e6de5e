package domain

import (
	"context"
	"fmt"
	"time"
)

// Enhancer produces a natural-language narrative for an alert. Implementations
// call external services and may be slow or unavailable.
type Enhancer interface {
	Enhance(ctx context.Context, alert Alert) (Narrative, error)
}

// EnhanceAlert asks enhancer for a narrative, giving up after timeout or when
// ctx is cancelled. On success only the Narrative field differs from alert.
// On any failure the original alert is returned unchanged together with an
// error wrapping ErrEnhancementUnavailable, which callers surface as a warning.
func EnhanceAlert(ctx context.Context, alert Alert, enhancer Enhancer, timeout time.Duration) (Alert, error) {
	if enhancer == nil {
		return alert, fmt.Errorf("%w: no enhancer configured", ErrEnhancementUnavailable)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		narrative Narrative
		err       error
	}
	// Buffered so an enhancer that ignores ctx can still finish and exit.
	done := make(chan result, 1)
	input := alert.Clone()
	go func() {
		n, err := enhancer.Enhance(ctx, input)
		done <- result{narrative: n, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return alert, fmt.Errorf("%w: %w", ErrEnhancementUnavailable, ctx.Err())
	case r = <-done:
	}

	if r.err != nil {
		return alert, fmt.Errorf("%w: %w", ErrEnhancementUnavailable, r.err)
	}
	if r.narrative.IsZero() {
		return alert, fmt.Errorf("%w: empty narrative", ErrEnhancementUnavailable)
	}

	out := alert.Clone()
	out.Narrative = &r.narrative
	return out, nil
}

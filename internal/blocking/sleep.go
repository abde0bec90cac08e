package blocking

import (
	"context"
	"log/slog"
	"time"
)

// result is what a strategy reports back to the simulator.
type result struct {
	fallback    bool
	interrupted bool
}

// strategy holds the calling goroutine for roughly d.
type strategy interface {
	block(ctx context.Context, d time.Duration) result
}

// sleepStrategy parks the caller on a timer.
type sleepStrategy struct {
	logger *slog.Logger
}

func (s *sleepStrategy) block(ctx context.Context, d time.Duration) result {
	if err := wait(ctx, d); err != nil {
		s.logger.WarnContext(ctx, "sleep blocking was interrupted",
			"duration_ms", d.Milliseconds(), "error", err)
		return result{interrupted: true}
	}
	return result{}
}

// wait blocks for d or until ctx is done. It returns ctx.Err() when cut
// short and leaves ctx untouched so the caller still sees the cancellation.
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

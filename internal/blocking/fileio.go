package blocking

import (
	"context"
	"log/slog"
	"time"
)

// workingSets supplies files for the file I/O strategy.
type workingSets interface {
	Acquire(tier Tier) (string, func(), error)
}

// fileIOStrategy holds the caller in repeated small reads of a working set
// sized to the target duration, pacing the reads so the total comes out near
// the target. Any I/O failure degrades to sleeping out the rest.
type fileIOStrategy struct {
	store  workingSets
	sleep  *sleepStrategy
	logger *slog.Logger
}

func (f *fileIOStrategy) block(ctx context.Context, d time.Duration) result {
	start := time.Now()
	tier := TierFor(d)

	path, release, err := f.store.Acquire(tier)
	if err != nil {
		return f.fallback(ctx, d, start, err)
	}
	defer release()

	iterations := tier.Iterations(d)
	var total int64
	for i := 0; i < iterations; i++ {
		n, err := readThrough(path)
		if err != nil {
			return f.fallback(ctx, d, start, err)
		}
		total += n

		remaining := d - time.Since(start)
		if remaining <= 0 {
			break
		}
		left := iterations - i - 1
		if left == 0 {
			break
		}
		if err := wait(ctx, remaining/time.Duration(left)); err != nil {
			f.logger.WarnContext(ctx, "file I/O blocking was interrupted", "error", err)
			return result{interrupted: true}
		}
	}

	// The last read carries no pause, so settle any leftover budget here.
	if err := wait(ctx, d-time.Since(start)); err != nil {
		f.logger.WarnContext(ctx, "file I/O blocking was interrupted", "error", err)
		return result{interrupted: true}
	}

	f.logger.DebugContext(ctx, "file I/O blocking completed",
		"duration_ms", d.Milliseconds(),
		"file", tier.Name,
		"iterations", iterations,
		"bytes_read", total,
	)
	return result{}
}

func (f *fileIOStrategy) fallback(ctx context.Context, d time.Duration, start time.Time, cause error) result {
	f.logger.WarnContext(ctx, "file I/O blocking encountered an issue, falling back to sleep", "error", cause)
	r := f.sleep.block(ctx, d-time.Since(start))
	r.fallback = true
	return r
}

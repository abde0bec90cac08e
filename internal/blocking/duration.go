package blocking

import "time"

// Hard-coded bounds used when nothing else supplies them.
const (
	FallbackOperationType    = "sleep"
	FallbackMinBlockPeriodMs = 1000
	FallbackMaxBlockPeriodMs = 5000
)

// MaxBlockPeriodMs is the longest block the simulator will perform, one day.
// Larger bounds are clamped to it.
const MaxBlockPeriodMs = 24 * 60 * 60 * 1000

// Defaults is a snapshot of the process-wide blocking configuration.
type Defaults struct {
	OperationType    string
	MinBlockPeriodMs int
	MaxBlockPeriodMs int
}

// DefaultsProvider hands out the current Defaults. It is consulted on every
// call so that reconfiguration takes effect between requests.
type DefaultsProvider interface {
	BlockingDefaults() Defaults
}

// StaticDefaults is a DefaultsProvider that never changes.
type StaticDefaults Defaults

func (s StaticDefaults) BlockingDefaults() Defaults { return Defaults(s) }

// FallbackDefaults returns the hard-coded defaults.
func FallbackDefaults() Defaults {
	return Defaults{
		OperationType:    FallbackOperationType,
		MinBlockPeriodMs: FallbackMinBlockPeriodMs,
		MaxBlockPeriodMs: FallbackMaxBlockPeriodMs,
	}
}

// DrawDuration picks a duration in milliseconds. Both bounds are first
// clamped to [0, MaxBlockPeriodMs]. When minMs >= maxMs the result is minMs;
// otherwise it is uniform over [minMs, maxMs], both ends included. intN must
// return a value in [0, n).
func DrawDuration(minMs, maxMs int, intN func(int) int) int {
	minMs, maxMs = ClampBlockPeriod(minMs), ClampBlockPeriod(maxMs)
	if minMs >= maxMs {
		return minMs
	}
	return minMs + intN(maxMs-minMs+1)
}

// ClampBlockPeriod limits ms to [0, MaxBlockPeriodMs].
func ClampBlockPeriod(ms int) int {
	return min(max(ms, 0), MaxBlockPeriodMs)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

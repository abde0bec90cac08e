// Package analytics keeps running per-operation totals in Redis so several
// server replicas can be observed as one.
package analytics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

const (
	keyPrefix      = "blocking:"
	defaultTimeout = 250 * time.Millisecond
)

// OperationStats are the totals for one executed operation type.
type OperationStats struct {
	Operations  int64 `json:"operations"`
	ElapsedMs   int64 `json:"elapsed_ms"`
	Fallbacks   int64 `json:"fallbacks"`
	Interrupted int64 `json:"interrupted"`
}

// AvgElapsedMs is zero when nothing has been recorded.
func (s OperationStats) AvgElapsedMs() float64 {
	if s.Operations == 0 {
		return 0
	}
	return float64(s.ElapsedMs) / float64(s.Operations)
}

type Analytics struct {
	redis   redis.Cmdable
	timeout time.Duration
	logger  *slog.Logger
}

func NewAnalytics(r redis.Cmdable, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{redis: r, timeout: defaultTimeout, logger: logger}
}

func opsKey(op string) string         { return keyPrefix + "ops:" + op }
func elapsedKey(op string) string     { return keyPrefix + "elapsed_ms:" + op }
func fallbacksKey(op string) string   { return keyPrefix + "fallbacks:" + op }
func interruptedKey(op string) string { return keyPrefix + "interrupted:" + op }

// RecordOperation adds o to the totals of the operation that actually ran.
// It implements blocking.Recorder; Redis failures are logged and dropped.
func (a *Analytics) RecordOperation(o blocking.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	op := o.Executed.String()
	_, err := a.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, opsKey(op))
		p.IncrBy(ctx, elapsedKey(op), o.Elapsed.Milliseconds())
		if o.Fallback {
			p.Incr(ctx, fallbacksKey(op))
		}
		if o.Interrupted {
			p.Incr(ctx, interruptedKey(op))
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("recording blocking analytics failed", "operation", op, "error", err)
	}
}

// FetchStats returns the totals keyed by executed operation tag. Operations
// never recorded are reported as zeros.
func (a *Analytics) FetchStats(ctx context.Context) (map[string]OperationStats, error) {
	ops := blocking.ConcreteOperations()
	keys := make([]string, 0, 4*len(ops))
	for _, op := range ops {
		tag := op.String()
		keys = append(keys, opsKey(tag), elapsedKey(tag), fallbacksKey(tag), interruptedKey(tag))
	}

	vals, err := a.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]OperationStats, len(ops))
	for i, op := range ops {
		v := vals[4*i : 4*i+4]
		result[op.String()] = OperationStats{
			Operations:  toInt(v[0]),
			ElapsedMs:   toInt(v[1]),
			Fallbacks:   toInt(v[2]),
			Interrupted: toInt(v[3]),
		}
	}
	return result, nil
}

// Reset deletes every recorded total.
func (a *Analytics) Reset(ctx context.Context) error {
	var keys []string
	for _, op := range blocking.ConcreteOperations() {
		tag := op.String()
		keys = append(keys, opsKey(tag), elapsedKey(tag), fallbacksKey(tag), interruptedKey(tag))
	}
	return a.redis.Del(ctx, keys...).Err()
}

// toInt reads an MGET value; missing keys come back as nil.
func toInt(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

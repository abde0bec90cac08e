package loadtest

import (
	"fmt"
	"slices"
	"time"
)

// Summary aggregates a Run.
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	SuccessRate float64 // percent
	Elapsed     time.Duration
	Interrupted bool

	// Latency statistics cover every request that got as far as sending,
	// failures included.
	Avg, Median, Min, Max, P95, P99 time.Duration

	Errors map[string]int
}

func Summarize(run Run) Summary {
	s := Summary{
		Total:       len(run.Results),
		Elapsed:     run.Elapsed,
		Interrupted: run.Interrupted,
		Errors:      make(map[string]int),
	}

	latencies := make([]time.Duration, 0, len(run.Results))
	var sum time.Duration
	for _, r := range run.Results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed++
			s.Errors[errorKey(r)]++
		}
		if r.Latency > 0 {
			latencies = append(latencies, r.Latency)
			sum += r.Latency
		}
	}
	if s.Total > 0 {
		s.SuccessRate = 100 * float64(s.Successful) / float64(s.Total)
	}

	n := len(latencies)
	if n == 0 {
		return s
	}
	slices.Sort(latencies)
	s.Avg = sum / time.Duration(n)
	s.Min = latencies[0]
	s.Max = latencies[n-1]
	if n%2 == 1 {
		s.Median = latencies[n/2]
	} else {
		s.Median = (latencies[n/2-1] + latencies[n/2]) / 2
	}
	s.P95 = latencies[int(0.95*float64(n))]
	s.P99 = latencies[int(0.99*float64(n))]
	return s
}

func errorKey(r Result) string {
	if r.Err != "" {
		return r.Err
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

// Package loadtest drives an HTTP endpoint with fixed-size batches of
// concurrent requests and summarizes the latencies it saw.
package loadtest

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrInvalidOptions is wrapped by every Options validation failure.
var ErrInvalidOptions = errors.New("invalid load test options")

type Options struct {
	URL        string
	Concurrent int
	Total      int
	Timeout    time.Duration
	// Rate caps requests per second across all workers; zero means no cap.
	Rate   float64
	Warmup bool
}

func DefaultOptions() Options {
	return Options{
		Concurrent: 10,
		Total:      100,
		Timeout:    30 * time.Second,
		Warmup:     true,
	}
}

func (o Options) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidOptions)
	}
	if u, err := url.Parse(o.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: url %q is not absolute", ErrInvalidOptions, o.URL)
	}
	if o.Concurrent <= 0 {
		return fmt.Errorf("%w: concurrent must be greater than 0", ErrInvalidOptions)
	}
	if o.Total <= 0 {
		return fmt.Errorf("%w: total must be greater than 0", ErrInvalidOptions)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be greater than 0", ErrInvalidOptions)
	}
	if o.Concurrent > o.Total {
		return fmt.Errorf("%w: concurrent cannot be greater than total", ErrInvalidOptions)
	}
	if o.Rate < 0 {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidOptions)
	}
	return nil
}

package loadtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Result is the outcome of one request.
type Result struct {
	ID         int
	Latency    time.Duration
	StatusCode int
	Success    bool
	// Err is the transport error text; empty when a response arrived.
	Err string
}

// Run is what Runner.Run observed.
type Run struct {
	Results     []Result
	Elapsed     time.Duration
	Interrupted bool
}

type Runner struct {
	opts        Options
	client      *http.Client
	limiter     *rate.Limiter
	progress    io.Writer
	warmupPause time.Duration
}

type RunnerOption func(*Runner)

// WithHTTPClient replaces the default client. The per-request timeout from
// Options still applies.
func WithHTTPClient(c *http.Client) RunnerOption {
	return func(r *Runner) { r.client = c }
}

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) { r.progress = w }
}

// WithWarmupPause sets the pause between warmup and the measured run.
func WithWarmupPause(d time.Duration) RunnerOption {
	return func(r *Runner) { r.warmupPause = d }
}

func NewRunner(opts Options, ropts ...RunnerOption) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		opts: opts,
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        opts.Concurrent,
			MaxIdleConnsPerHost: opts.Concurrent,
		}},
		progress:    io.Discard,
		warmupPause: time.Second,
	}
	if opts.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	for _, o := range ropts {
		o(r)
	}
	return r, nil
}

// Warmup sends one batch of Concurrent requests, discards the results and
// pauses before returning.
func (r *Runner) Warmup(ctx context.Context) error {
	r.batch(context.WithoutCancel(ctx), 0, r.opts.Concurrent)
	t := time.NewTimer(r.warmupPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run sends Total requests in batches of Concurrent. Cancelling ctx lets the
// batch in flight finish and stops before the next one.
func (r *Runner) Run(ctx context.Context) Run {
	bar := progressbar.NewOptions(r.opts.Total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("Running load test"),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(r.progress) }),
	)

	run := Run{Results: make([]Result, 0, r.opts.Total)}
	start := time.Now()
	for sent := 0; sent < r.opts.Total; {
		if ctx.Err() != nil {
			run.Interrupted = true
			break
		}
		n := min(r.opts.Concurrent, r.opts.Total-sent)
		run.Results = append(run.Results, r.batch(context.WithoutCancel(ctx), sent, n)...)
		sent += n
		_ = bar.Add(n)
	}
	run.Elapsed = time.Since(start)
	return run
}

// batch runs n requests concurrently, numbering them from first.
func (r *Runner) batch(ctx context.Context, first, n int) []Result {
	results := make([]Result, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			results[i] = r.do(ctx, first+i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) do(ctx context.Context, id int) Result {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Result{ID: id, Err: err.Error()}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	res := Result{ID: id}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.URL, nil)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	resp, err := r.client.Do(req)
	if err != nil {
		res.Latency = time.Since(start)
		res.Err = err.Error()
		return res
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	res.Latency = time.Since(start)
	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode == http.StatusOK
	return res
}

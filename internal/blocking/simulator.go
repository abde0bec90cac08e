// Package blocking holds the calling goroutine for a bounded, randomized
// amount of wall-clock time using one of several realistic mechanisms: a
// timer sleep, paced disk reads, or TCP connects to unroutable addresses.
//
// A Simulator is safe for concurrent use. Each Perform call is independent;
// the only shared state is the read-only defaults snapshot, the scratch
// files of a shared ScratchStore and the package-level math/rand/v2 source,
// which is safe for concurrent use without a lock.
package blocking

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/CSroseX/blocking-api-server/internal/blocking"

// Request carries optional call-time overrides. Nil fields mean "use the
// configured default". A non-nil OperationType is always parsed, so an empty
// name degrades to Sleep like any other unknown one.
type Request struct {
	OperationType    *string
	MinBlockPeriodMs *int
	MaxBlockPeriodMs *int
}

// Plan is a fully resolved request.
type Plan struct {
	Operation OperationType
	// InvalidOperation is set when the supplied name matched no operation
	// and Sleep was substituted.
	InvalidOperation bool
	MinMs            int
	MaxMs            int
	Duration         time.Duration
}

// Outcome describes what a Perform call did. It is informational only.
type Outcome struct {
	Plan
	// Executed is the concrete strategy that ran; it differs from
	// Plan.Operation only for Mixed.
	Executed    OperationType
	Elapsed     time.Duration
	Fallback    bool
	Interrupted bool
}

// Recorder observes completed operations.
type Recorder interface {
	RecordOperation(Outcome)
}

// Simulator resolves requests against the current defaults and runs the
// matching blocking strategy.
type Simulator struct {
	defaults  DefaultsProvider
	logger    *slog.Logger
	intN      func(int) int
	tracer    trace.Tracer
	recorders []Recorder

	store   *ScratchStore
	dialer  Dialer
	targets []string
	hold    bool

	strategies map[OperationType]strategy
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithRecorder adds a Recorder notified after every Perform.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) { s.recorders = append(s.recorders, r) }
}

// WithScratchStore sets where the file I/O strategy keeps its working sets.
func WithScratchStore(store *ScratchStore) Option {
	return func(s *Simulator) { s.store = store }
}

// WithDialer replaces the dialer used by the network strategy.
func WithDialer(d Dialer) Option {
	return func(s *Simulator) { s.dialer = d }
}

// WithNetworkTargets replaces DefaultNetworkTargets.
func WithNetworkTargets(addrs ...string) Option {
	return func(s *Simulator) { s.targets = addrs }
}

// WithHoldNetworkBudget controls whether a connect attempt that fails before
// its timeout waits out the rest of its slice. Enabled by default.
func WithHoldNetworkBudget(hold bool) Option {
	return func(s *Simulator) { s.hold = hold }
}

// WithRandom replaces the source of randomness. intN must be safe for
// concurrent use and return a value in [0, n).
func WithRandom(intN func(int) int) Option {
	return func(s *Simulator) { s.intN = intN }
}

// WithTracerProvider sets the tracer provider. The default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Simulator) { s.tracer = tp.Tracer(tracerName) }
}

// New creates a Simulator. A nil provider falls back to FallbackDefaults.
func New(defaults DefaultsProvider, opts ...Option) *Simulator {
	s := &Simulator{
		defaults: defaults,
		intN:     rand.IntN,
		hold:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaults == nil {
		s.defaults = StaticDefaults(FallbackDefaults())
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.store == nil {
		s.store = NewScratchStore(DefaultScratchDir, true, s.logger)
	}
	if s.dialer == nil {
		s.dialer = &net.Dialer{}
	}

	sleep := &sleepStrategy{logger: s.logger}
	s.strategies = map[OperationType]strategy{
		Sleep:  sleep,
		FileIO: &fileIOStrategy{store: s.store, sleep: sleep, logger: s.logger},
		NetworkIO: &networkIOStrategy{
			dialer:  s.dialer,
			targets: s.targets,
			hold:    s.hold,
			logger:  s.logger,
		},
	}
	return s
}

// Resolve applies overrides over the current defaults and draws a duration.
func (s *Simulator) Resolve(req Request) Plan {
	return s.resolve(context.Background(), req)
}

func (s *Simulator) resolve(ctx context.Context, req Request) Plan {
	d := s.defaults.BlockingDefaults()

	name := d.OperationType
	if req.OperationType != nil {
		name = *req.OperationType
	}
	op, ok := ParseOperationType(name)
	if !ok {
		s.logger.WarnContext(ctx, "invalid operation type, defaulting to SLEEP", "operation_type", name)
	}

	minMs, maxMs := d.MinBlockPeriodMs, d.MaxBlockPeriodMs
	if req.MinBlockPeriodMs != nil {
		minMs = *req.MinBlockPeriodMs
	}
	if req.MaxBlockPeriodMs != nil {
		maxMs = *req.MaxBlockPeriodMs
	}
	if minMs > MaxBlockPeriodMs || maxMs > MaxBlockPeriodMs {
		s.logger.WarnContext(ctx, "block period above limit, clamping",
			"min_ms", minMs, "max_ms", maxMs, "limit_ms", MaxBlockPeriodMs)
	}
	minMs, maxMs = ClampBlockPeriod(minMs), ClampBlockPeriod(maxMs)

	return Plan{
		Operation:        op,
		InvalidOperation: !ok,
		MinMs:            minMs,
		MaxMs:            maxMs,
		Duration:         millis(DrawDuration(minMs, maxMs, s.intN)),
	}
}

// Perform blocks the caller for roughly the resolved duration. It never
// fails: I/O problems degrade to sleeping, and cancellation of ctx cuts the
// wait short while leaving ctx cancelled for the caller to observe.
func (s *Simulator) Perform(ctx context.Context, req Request) Outcome {
	plan := s.resolve(ctx, req)

	executed := plan.Operation
	if executed == Mixed {
		executed = s.pickConcrete()
		s.logger.InfoContext(ctx, "performing blocking operation",
			"operation", "MIXED", "selected", executed.String(),
			"duration_ms", plan.Duration.Milliseconds(),
			"min_ms", plan.MinMs, "max_ms", plan.MaxMs)
	} else {
		s.logger.InfoContext(ctx, "performing blocking operation",
			"operation", executed.String(),
			"duration_ms", plan.Duration.Milliseconds(),
			"min_ms", plan.MinMs, "max_ms", plan.MaxMs)
	}

	ctx, span := s.tracer.Start(ctx, "blocking."+strings.ToLower(executed.String()),
		trace.WithAttributes(
			attribute.String("blocking.requested", plan.Operation.String()),
			attribute.String("blocking.executed", executed.String()),
			attribute.Int64("blocking.duration_ms", plan.Duration.Milliseconds()),
		))
	defer span.End()

	start := time.Now()
	res := s.strategies[executed].block(ctx, plan.Duration)

	out := Outcome{
		Plan:        plan,
		Executed:    executed,
		Elapsed:     time.Since(start),
		Fallback:    res.fallback,
		Interrupted: res.interrupted,
	}
	span.SetAttributes(
		attribute.Int64("blocking.elapsed_ms", out.Elapsed.Milliseconds()),
		attribute.Bool("blocking.fallback", out.Fallback),
		attribute.Bool("blocking.interrupted", out.Interrupted),
	)
	for _, r := range s.recorders {
		r.RecordOperation(out)
	}
	return out
}

// pickConcrete chooses uniformly among the non-mixed operations.
func (s *Simulator) pickConcrete() OperationType {
	return concreteOperations[s.intN(len(concreteOperations))]
}

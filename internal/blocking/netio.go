package blocking

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// DefaultNetworkTargets are addresses from the RFC 5737 documentation ranges
// (TEST-NET-1, -2, -3). Nothing real answers on them.
var DefaultNetworkTargets = []string{
	"192.0.2.1:80",
	"198.51.100.1:80",
	"203.0.113.1:53",
}

// Dialer is the subset of *net.Dialer the network strategy needs.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// networkIOStrategy spends the target duration in TCP connects that are
// expected to time out.
type networkIOStrategy struct {
	dialer  Dialer
	targets []string
	// hold keeps an attempt that failed early waiting until its deadline.
	hold   bool
	logger *slog.Logger
}

func (n *networkIOStrategy) block(ctx context.Context, d time.Duration) result {
	targets := n.targets
	if len(targets) == 0 {
		targets = DefaultNetworkTargets
	}
	budget := attemptBudget(d, len(targets))

	for i, addr := range targets {
		if err := n.attempt(ctx, i+1, addr, budget); err != nil {
			n.logger.WarnContext(ctx, "network I/O blocking was interrupted", "attempt", i+1, "error", err)
			return result{interrupted: true}
		}
	}
	n.logger.DebugContext(ctx, "network I/O blocking completed", "duration_ms", d.Milliseconds())
	return result{}
}

// attempt dials addr with a budget-long timeout. It only returns an error
// when the parent context is done.
func (n *networkIOStrategy) attempt(ctx context.Context, num int, addr string, budget time.Duration) error {
	actx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	conn, err := n.dialer.DialContext(actx, "tcp", addr)
	if err != nil {
		n.logger.DebugContext(ctx, "network I/O attempt completed (expected)", "attempt", num, "addr", addr, "error", err)
	} else {
		_ = conn.Close()
		n.logger.DebugContext(ctx, "network I/O attempt completed unexpectedly", "attempt", num, "addr", addr)
	}

	if n.hold {
		<-actx.Done()
	}
	return ctx.Err()
}

// attemptBudget splits d evenly across attempts in whole milliseconds, at
// least one millisecond each.
func attemptBudget(d time.Duration, attempts int) time.Duration {
	per := millis(int(d.Milliseconds()) / attempts)
	if per < time.Millisecond {
		return time.Millisecond
	}
	return per
}

package blocking

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// dialFunc adapts a function to Dialer.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func (f dialFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

// refusingDialer fails every dial immediately and remembers the addresses.
type refusingDialer struct {
	mu    sync.Mutex
	addrs []string
}

func (d *refusingDialer) DialContext(_ context.Context, _, addr string) (net.Conn, error) {
	d.mu.Lock()
	d.addrs = append(d.addrs, addr)
	d.mu.Unlock()
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: io.ErrUnexpectedEOF}
}

func (d *refusingDialer) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}

// recorderFunc adapts a function to Recorder.
type recorderFunc func(Outcome)

func (f recorderFunc) RecordOperation(o Outcome) { f(o) }

// within reports whether got is inside [want*(1-tol), want*(1+tol)+slop].
func within(got, want time.Duration, tol float64, slop time.Duration) bool {
	lo := time.Duration(float64(want) * (1 - tol))
	hi := time.Duration(float64(want)*(1+tol)) + slop
	return got >= lo && got <= hi
}

// readDir lists the names in dir.
func readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

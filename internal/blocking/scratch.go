package blocking

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	writeBufferSize = 8 << 10
	readBufferSize  = 4 << 10

	// DefaultScratchDir is where shared working sets live unless configured.
	DefaultScratchDir = "testdata/blocking"
)

// Tier maps a band of target durations to a working-set size and the rough
// cost of one full read of that working set.
type Tier struct {
	Name    string
	Size    int64
	Below   time.Duration // exclusive upper bound; zero means unbounded
	PerRead time.Duration
}

// Tiers are ordered by Below; the last one catches everything else.
var Tiers = []Tier{
	{Name: "file_1kb.dat", Size: 1 << 10, Below: 100 * time.Millisecond, PerRead: 2 * time.Millisecond},
	{Name: "file_100kb.dat", Size: 100 << 10, Below: 500 * time.Millisecond, PerRead: 5 * time.Millisecond},
	{Name: "file_1mb.dat", Size: 1 << 20, Below: 2000 * time.Millisecond, PerRead: 10 * time.Millisecond},
	{Name: "file_10mb.dat", Size: 10 << 20, PerRead: 20 * time.Millisecond},
}

// TierFor returns the working-set tier for a target duration.
func TierFor(d time.Duration) Tier {
	for _, t := range Tiers {
		if t.Below == 0 || d < t.Below {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// Iterations is how many full reads are needed to fill d, at least one.
func (t Tier) Iterations(d time.Duration) int {
	n := int(d / t.PerRead)
	if n < 1 {
		return 1
	}
	return n
}

// ScratchStore hands out working-set files for the file I/O strategy.
//
// In shared mode one file per tier is created on first use and kept for later
// calls. Creation writes a temp file and renames it into place, so concurrent
// first users may both write but readers never see a partial file. In
// per-call mode every Acquire gets a private file that its release removes.
type ScratchStore struct {
	dir    string
	shared bool
	logger *slog.Logger
}

// NewScratchStore creates a store rooted at dir. An empty dir means
// DefaultScratchDir.
func NewScratchStore(dir string, shared bool, logger *slog.Logger) *ScratchStore {
	if dir == "" {
		dir = DefaultScratchDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScratchStore{dir: dir, shared: shared, logger: logger}
}

// Dir returns the directory scratch files are written to.
func (s *ScratchStore) Dir() string { return s.dir }

// Acquire returns the path of a working set of tier.Size bytes and a release
// func the caller must invoke once done reading.
func (s *ScratchStore) Acquire(tier Tier) (string, func(), error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create scratch dir %s: %w", s.dir, err)
	}
	if s.shared {
		path, err := s.ensureShared(tier)
		return path, func() {}, err
	}

	f, err := os.CreateTemp(s.dir, "call-*-"+tier.Name)
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	release := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove scratch file", "path", path, "error", err)
		}
	}
	if err := fill(f, tier.Size); err != nil {
		release()
		return "", nil, err
	}
	return path, release, nil
}

func (s *ScratchStore) ensureShared(tier Tier) (string, error) {
	path := filepath.Join(s.dir, tier.Name)
	if info, err := os.Stat(path); err == nil && info.Size() == tier.Size {
		return path, nil
	}

	f, err := os.CreateTemp(s.dir, tier.Name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	tmp := f.Name()
	if err := fill(f, tier.Size); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish scratch file %s: %w", path, err)
	}
	s.logger.Info("created test data file", "file", tier.Name, "bytes", tier.Size)
	return path, nil
}

// fill writes size random bytes to f in writeBufferSize chunks and closes it.
func fill(f *os.File, size int64) error {
	buf := make([]byte, writeBufferSize)
	for remaining := size; remaining > 0; {
		n := min(int64(len(buf)), remaining)
		_, _ = rand.Read(buf[:n])
		if _, err := f.Write(buf[:n]); err != nil {
			_ = f.Close()
			return fmt.Errorf("write scratch file %s: %w", f.Name(), err)
		}
		remaining -= n
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch file %s: %w", f.Name(), err)
	}
	return nil
}

// readThrough reads the whole file with a small buffer so every chunk is a
// separate read syscall.
func readThrough(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, readBufferSize)
	var total int64
	for {
		n, err := f.Read(buf)
		total += int64(n)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read scratch file %s: %w", path, err)
		}
	}
}

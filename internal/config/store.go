package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

const reloadDebounce = 100 * time.Millisecond

// Status describes the live configuration.
type Status struct {
	Revision  int64     `json:"revision"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	Config    Config    `json:"config"`
}

// Store holds the live configuration. Readers get value copies, so a config
// handed out never changes underneath its holder.
type Store struct {
	mu     sync.RWMutex
	boot   Config
	config Config
	status Status
}

// NewStore creates a Store whose Reset target is cfg.
func NewStore(cfg Config) *Store {
	return &Store{
		boot:   cfg,
		config: cfg,
		status: Status{Revision: 1, Source: "boot", UpdatedAt: time.Now()},
	}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Set replaces the live config. source names who changed it.
func (s *Store) Set(cfg Config, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	s.status.Revision++
	s.status.Source = source
	s.status.UpdatedAt = time.Now()
}

// Update applies fn to a copy of the live config and stores the result if it
// validates.
func (s *Store) Update(source string, fn func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.config
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.config, err
	}
	s.config = next
	s.status.Revision++
	s.status.Source = source
	s.status.UpdatedAt = time.Now()
	return next, nil
}

// Reset restores the config the store was created with.
func (s *Store) Reset() {
	s.Set(s.boot, "reset")
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Config = s.config
	return st
}

// BlockingDefaults implements blocking.DefaultsProvider.
func (s *Store) BlockingDefaults() blocking.Defaults {
	return s.Get().Defaults()
}

// Watch reloads the YAML file at path whenever it changes until ctx is done.
// A file that fails to load is logged and the current config is kept.
func (s *Store) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and config-map mounts replace the file
	// rather than writing it in place.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			// A single save arrives as several events (truncate, write,
			// rename); load once they settle.
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed, keeping current config", "path", path, "error", err)
				continue
			}
			s.Set(cfg, "file")
			logger.Info("config reloaded", "path", path,
				"operation_type", cfg.Blocking.OperationType,
				"min_block_period_ms", cfg.Blocking.MinBlockPeriodMs,
				"max_block_period_ms", cfg.Blocking.MaxBlockPeriodMs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}

package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/CSroseX/blocking-api-server/internal/blocking"
)

// BlockingUpdate is the body of POST /admin/blocking. Absent fields keep
// their current value.
type BlockingUpdate struct {
	OperationType    *string `json:"operation_type"`
	MinBlockPeriodMs *int    `json:"min_block_period_ms"`
	MaxBlockPeriodMs *int    `json:"max_block_period_ms"`
}

// BlockingStatus is returned by the admin endpoints.
type BlockingStatus struct {
	Revision  int64          `json:"revision"`
	Source    string         `json:"source"`
	UpdatedAt string         `json:"updated_at"`
	Blocking  BlockingConfig `json:"blocking"`
}

func blockingStatus(st Status) BlockingStatus {
	return BlockingStatus{
		Revision:  st.Revision,
		Source:    st.Source,
		UpdatedAt: st.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Blocking:  st.Config.Blocking,
	}
}

// StatusHandler handles GET /admin/blocking.
func StatusHandler(s *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, blockingStatus(s.Status()))
	}
}

// UpdateHandler handles POST /admin/blocking.
func UpdateHandler(s *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req BlockingUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.OperationType != nil {
			if _, ok := blocking.ParseOperationType(*req.OperationType); !ok {
				http.Error(w, "Unknown operation_type", http.StatusBadRequest)
				return
			}
		}

		_, err := s.Update("admin", func(c *Config) {
			if req.OperationType != nil {
				c.Blocking.OperationType = *req.OperationType
			}
			if req.MinBlockPeriodMs != nil {
				c.Blocking.MinBlockPeriodMs = *req.MinBlockPeriodMs
			}
			if req.MaxBlockPeriodMs != nil {
				c.Blocking.MaxBlockPeriodMs = *req.MaxBlockPeriodMs
			}
		})
		if errors.Is(err, ErrInvalidConfig) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "Update failed", http.StatusInternalServerError)
			return
		}

		st := s.Status()
		logger.Info("blocking defaults updated",
			"revision", st.Revision,
			"operation_type", st.Config.Blocking.OperationType,
			"min_block_period_ms", st.Config.Blocking.MinBlockPeriodMs,
			"max_block_period_ms", st.Config.Blocking.MaxBlockPeriodMs)
		writeJSON(w, http.StatusOK, blockingStatus(st))
	}
}

// ResetHandler handles POST /admin/blocking/reset.
func ResetHandler(s *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.Reset()
		logger.Info("blocking defaults reset to boot config")
		writeJSON(w, http.StatusOK, blockingStatus(s.Status()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

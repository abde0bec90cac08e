package analytics

import (
	"encoding/json"
	"net/http"
)

type statsResponse struct {
	Operations map[string]OperationStats `json:"operations"`
	Totals     OperationStats            `json:"totals"`
}

// Handler serves GET /admin/analytics and DELETE /admin/analytics.
func Handler(a *Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodDelete:
			if err := a.Reset(r.Context()); err != nil {
				http.Error(w, "analytics store unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stats, err := a.FetchStats(r.Context())
		if err != nil {
			http.Error(w, "analytics store unavailable", http.StatusServiceUnavailable)
			return
		}

		resp := statsResponse{Operations: stats}
		for _, s := range stats {
			resp.Totals.Operations += s.Operations
			resp.Totals.ElapsedMs += s.ElapsedMs
			resp.Totals.Fallbacks += s.Fallbacks
			resp.Totals.Interrupted += s.Interrupted
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

package packs

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kilianp07/sop/core/packstatus"
)

// NewStatusHandler returns an HTTP handler exposing the latest cycle of every
// pack via GET /api/packs/status. A pack id after the prefix, as in
// /api/packs/status/pack1, returns that pack alone.
func NewStatusHandler(store packstatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/packs/status"), "/"); id != "" {
			st, ok := store.Get(id)
			if !ok {
				http.Error(w, "unknown pack", http.StatusNotFound)
				return
			}
			if err := json.NewEncoder(w).Encode(st); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		f := packstatus.Filter{
			PackID:     r.URL.Query().Get("pack_id"),
			Polarity:   r.URL.Query().Get("polarity"),
			AlertsOnly: r.URL.Query().Get("alerts") == "true",
		}
		if err := json.NewEncoder(w).Encode(store.List(f)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

package cycles

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/pkg/export"
)

// NewHandler returns an HTTP handler exposing journaled cycles via
// GET /api/cycles. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty. format=csv switches the body to
// CSV.
func NewHandler(store journal.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		params := r.URL.Query()
		q := journal.Query{
			PackID:     params.Get("pack_id"),
			RunID:      params.Get("run_id"),
			AlertsOnly: params.Get("alerts") == "true",
			Limit:      100,
		}
		if s := params.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := params.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if b := params.Get("binding"); b != "" {
			if _, ok := model.ParseConstraint(b); !ok {
				http.Error(w, "unknown binding "+strconv.Quote(b), http.StatusBadRequest)
				return
			}
			q.Binding = b
		}
		if s := params.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}

		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if params.Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			err = export.WriteRecordsCSV(w, records)
		} else {
			w.Header().Set("Content-Type", "application/json")
			if records == nil {
				records = []journal.Record{}
			}
			err = export.WriteJSON(w, records)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

package cycles

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/core/model"
)

type memStore struct {
	recs []journal.Record
	last journal.Query
}

func (m *memStore) Append(ctx context.Context, r journal.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q journal.Query) ([]journal.Record, error) {
	m.last = q
	var res []journal.Record
	for _, r := range m.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func newStore(t *testing.T) *memStore {
	t.Helper()
	store := &memStore{}
	now := time.Now().UTC()
	recs := []journal.Record{
		{Time: now, PackID: "p1", Output: model.CycleOutput{Binding: model.ConstraintSOCMax}},
		{Time: now, PackID: "p2"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return store
}

func TestHandler_AuthAndFilters(t *testing.T) {
	store := newStore(t)
	h := NewHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/cycles?pack_id=p1&limit=5", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []journal.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].PackID != "p1" {
		t.Fatalf("unexpected records %#v", out)
	}
	if store.last.Limit != 5 {
		t.Fatalf("limit not forwarded: %+v", store.last)
	}
}

func TestHandler_Binding(t *testing.T) {
	h := NewHandler(newStore(t), "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/cycles?binding=soc_max", nil))
	var out []journal.Record
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if len(out) != 1 || out[0].PackID != "p1" {
		t.Fatalf("binding filter bad %#v", out)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/cycles?binding=bogus", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/cycles?limit=-1", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestHandler_CSV(t *testing.T) {
	h := NewHandler(newStore(t), "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/cycles?format=csv", nil))
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type %q", ct)
	}
	rows, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
}

func TestHandler_EmptyIsArray(t *testing.T) {
	h := NewHandler(&memStore{}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/cycles", nil))
	if got := rr.Body.String(); got != "[]\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

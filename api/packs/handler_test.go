package packs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/packstatus"
)

func newStore() *packstatus.MemoryStore {
	s := packstatus.NewMemoryStore()
	_ = s.RecordCycle(metrics.CycleEvent{PackID: "p1", Output: model.CycleOutput{ChargeLimit: 20}})
	_ = s.RecordCycle(metrics.CycleEvent{PackID: "p2", Output: model.CycleOutput{Polarity: model.Discharge}})
	return s
}

func TestStatusHandler_List(t *testing.T) {
	h := NewStatusHandler(newStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/packs/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []packstatus.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].PackID != "p1" {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestStatusHandler_Filter(t *testing.T) {
	h := NewStatusHandler(newStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/packs/status?polarity=discharge", nil))
	var out []packstatus.Status
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if len(out) != 1 || out[0].PackID != "p2" {
		t.Fatalf("polarity filter bad %#v", out)
	}
}

func TestStatusHandler_Single(t *testing.T) {
	h := NewStatusHandler(newStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/packs/status/p1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var st packstatus.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Output.ChargeLimit != 20 {
		t.Fatalf("unexpected status %#v", st)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/packs/status/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestStatusHandler_Method(t *testing.T) {
	h := NewStatusHandler(newStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/packs/status", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

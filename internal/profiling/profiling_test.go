package profiling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleStatsReportsVersionAndUptime(t *testing.T) {
	s := New("127.0.0.1:0", nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	s.handleStats(rr, req)

	var resp statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Version == "" || resp.StartTime == "" {
		t.Fatalf("expected version and start_time to be populated, got %+v", resp)
	}
}

func TestHandleHealthReportsHealthy(t *testing.T) {
	s := New("127.0.0.1:0", nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.handleHealth(rr, req)

	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("expected status healthy, got %q", resp.Status)
	}
}

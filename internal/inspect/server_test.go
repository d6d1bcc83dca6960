package inspect

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
	"github.com/kaseeder/kaseeder/internal/store"
)

// fakeManager is a minimal store.Manager for exercising the inspection
// endpoints, in the style of original_source/src/dns.rs's
// MockAddressManager.
type fakeManager struct {
	v4    []peeraddr.Address
	v6    []peeraddr.Address
	stats store.Stats
}

func (f *fakeManager) AddOrMerge(addr peeraddr.Address, meta store.SourceMetadata) store.RejectReason {
	return store.RejectNone
}
func (f *fakeManager) MarkSuccess(addr peeraddr.Address, protocolVersion uint32, userAgent, subnetworkID string) {
}
func (f *fakeManager) MarkFailure(addr peeraddr.Address)       {}
func (f *fakeManager) SelectForProbe(n int) []peeraddr.Address { return nil }
func (f *fakeManager) SnapshotStats() store.Stats               { return f.stats }
func (f *fakeManager) RetireSweep()                             {}
func (f *fakeManager) Persist() error                           { return nil }
func (f *fakeManager) Load() error                              { return nil }
func (f *fakeManager) GoodSample(max int, family store.Family, subnetworkID string) []peeraddr.Address {
	if family == store.FamilyV4 {
		return f.v4
	}
	return f.v6
}

func testConfig() Config {
	return Config{ListenAddr: "127.0.0.1:0", SampleSize: 4, DefaultPort: 16111}
}

func TestHandleAddressesReturnsSampledAddresses(t *testing.T) {
	mgr := &fakeManager{
		v4: []peeraddr.Address{peeraddr.New(net.ParseIP("1.2.3.4"), 16111)},
		v6: []peeraddr.Address{peeraddr.New(net.ParseIP("2606:4700::1"), 16111)},
	}
	s := New(testConfig(), mgr, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/addresses", nil)
	s.handleAddresses(rr, req)

	var resp addressesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Addresses) != 2 {
		t.Fatalf("expected 2 addresses, got %v", resp.Addresses)
	}
}

func TestHandleStatsReportsSnapshot(t *testing.T) {
	mgr := &fakeManager{stats: store.Stats{Good: 3, Stale: 1, Bad: 2, New: 5, RejectedTotal: 9}}
	s := New(testConfig(), mgr, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	s.handleStats(rr, req)

	var resp statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Good != 3 || resp.Stale != 1 || resp.Bad != 2 || resp.New != 5 || resp.RejectedTotal != 9 {
		t.Fatalf("unexpected stats response: %+v", resp)
	}
}

func TestHandleHealthReportsOk(t *testing.T) {
	s := New(testConfig(), &fakeManager{}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	s.handleHealth(rr, req)

	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
}

func TestHandleStatusPageRendersHTML(t *testing.T) {
	mgr := &fakeManager{stats: store.Stats{Good: 7}}
	s := New(testConfig(), mgr, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.handleStatusPage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html" {
		t.Fatalf("expected text/html content type, got %q", ct)
	}
	body := rr.Body.String()
	if !contains(body, "Good") {
		t.Fatalf("expected status page to mention Good count, got %q", body)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"qcss/pkg/apperror"
	"qcss/pkg/config"
)

// backendStub is a minimal stand-in for a collectord instance: it answers
// /api/1.0/loadbalancer/ with a fixed name list and anything else with a
// canned status/body, and counts how many requests it received.
type backendStub struct {
	names  []string
	status int
	body   string
	hits   int32
}

func newBackendStub(names ...string) *backendStub {
	return &backendStub{names: names, status: http.StatusOK, body: `["ok"]`}
}

func (b *backendStub) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.hits, 1)
		if r.URL.Path == "/api/1.0/loadbalancer/" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(b.names)
			return
		}
		w.WriteHeader(b.status)
		_, _ = w.Write([]byte(b.body))
	}))
}

func newFederator(backends ...string) *Federator {
	return New(config.MetaWebConfig{
		Proxy:    backends,
		Timeout:  time.Second,
		Parallel: 10,
		Expire:   time.Minute,
	})
}

func TestFederator_Refresh_MergesNamesAcrossBackends(t *testing.T) {
	a := newBackendStub("lb1")
	b := newBackendStub("lb1", "lb2")
	sa, sb := a.server(), b.server()
	defer sa.Close()
	defer sb.Close()

	f := newFederator(sa.URL, sb.URL)
	if err := f.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := f.maps[""]
	if m == nil {
		t.Fatal("expected a fleet map after refresh")
	}
	if len(m.owners["lb1"]) != 2 {
		t.Errorf("lb1 owners = %v, want both backends", m.owners["lb1"])
	}
	if len(m.owners["lb2"]) != 1 || m.owners["lb2"][0] != sb.URL {
		t.Errorf("lb2 owners = %v, want [%s]", m.owners["lb2"], sb.URL)
	}
}

func TestFederator_Refresh_WithinExpireIsANoOp(t *testing.T) {
	a := newBackendStub("lb1")
	sa := a.server()
	defer sa.Close()

	f := newFederator(sa.URL)
	if err := f.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := atomic.LoadInt32(&a.hits); got != 1 {
		t.Errorf("backend hit %d times, want exactly 1 within the expire window", got)
	}
}

func TestFederator_Refresh_UnreachableBackendIsSkippedNotFatal(t *testing.T) {
	good := newBackendStub("lb1")
	sg := good.server()
	defer sg.Close()

	f := newFederator("http://127.0.0.1:1", sg.URL)
	if err := f.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := f.maps[""]
	if len(m.owners["lb1"]) != 1 {
		t.Errorf("owners = %v, want lb1 covered only by the reachable backend", m.owners["lb1"])
	}
}

// TestFederator_GetAll_CoveringSubsetThenSubstitutesOnFailure reproduces the
// fan-out scenario: backends {A,B,C}, map {lb1:[A,B], lb2:[B], lb3:[C]}.
// getAll should hit B and C (2 requests) to cover everything; once B is
// made to fail, a retry should add A (3 requests total) and still not
// manage to cover lb2, whose only owner is the failing B.
func TestFederator_GetAll_CoveringSubsetThenSubstitutesOnFailure(t *testing.T) {
	a := newBackendStub("lb1")
	b := newBackendStub("lb1", "lb2")
	c := newBackendStub("lb3")
	sa, sb, sc := a.server(), b.server(), c.server()
	defer sa.Close()
	defer sb.Close()
	defer sc.Close()

	f := newFederator(sa.URL, sb.URL, sc.URL)
	if err := f.Refresh(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// loadbalancer/ hit once per backend during Refresh; reset before
	// counting the getAll fan-out itself.
	atomic.StoreInt32(&a.hits, 0)
	atomic.StoreInt32(&b.hits, 0)
	atomic.StoreInt32(&c.hits, 0)
	b.status = http.StatusInternalServerError

	bodies, err := f.GetAll(context.Background(), "", "search/foo/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := atomic.LoadInt32(&a.hits) + atomic.LoadInt32(&b.hits) + atomic.LoadInt32(&c.hits)
	if total != 3 {
		t.Errorf("total requests = %d, want 3 (B, C, then A after B fails)", total)
	}
	if atomic.LoadInt32(&a.hits) != 1 {
		t.Errorf("A hit %d times, want exactly 1 (substituted in after B failed)", atomic.LoadInt32(&a.hits))
	}
	if len(bodies) != 2 {
		t.Errorf("got %d successful bodies, want 2 (A and C)", len(bodies))
	}
}

func TestFederator_ProxyResource_FailsOverToNextBackend(t *testing.T) {
	bad := newBackendStub("lb1")
	bad.status = http.StatusInternalServerError
	good := newBackendStub("lb1")
	good.body = `{"name":"lb1"}`
	sbad, sgood := bad.server(), good.server()
	defer sbad.Close()
	defer sgood.Close()

	f := newFederator(sbad.URL, sgood.URL)
	body, servedBy, err := f.ProxyResource(context.Background(), "", "lb1", "loadbalancer/lb1/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if servedBy != sgood.URL {
		t.Errorf("servedBy = %q, want the surviving backend", servedBy)
	}
	if string(body) != `{"name":"lb1"}` {
		t.Errorf("body = %s", body)
	}
}

func TestFederator_ProxyResource_FourOhFourIsNotRetried(t *testing.T) {
	first := newBackendStub("lb1")
	first.status = http.StatusNotFound
	first.body = `{"error":"not found"}`
	second := newBackendStub("lb1")
	s1, s2 := first.server(), second.server()
	defer s1.Close()
	defer s2.Close()

	f := newFederator(s1.URL, s2.URL)
	_, servedBy, err := f.ProxyResource(context.Background(), "", "lb1", "loadbalancer/lb1/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if servedBy != s1.URL {
		t.Errorf("servedBy = %q, want the first backend's 404 to be accepted, not retried", servedBy)
	}
}

func TestFederator_ProxyResource_AllBackendsFailReturnsGatewayTimeout(t *testing.T) {
	dead := newBackendStub("lb1")
	dead.status = http.StatusBadGateway
	s := dead.server()
	defer s.Close()

	f := newFederator(s.URL)
	_, _, err := f.ProxyResource(context.Background(), "", "lb1", "loadbalancer/lb1/")
	if !apperror.Is(err, apperror.CodeGatewayTimeout) {
		t.Errorf("err = %v, want CodeGatewayTimeout", err)
	}
}

func TestFederator_Refresh_GarbageCollectsOldDates(t *testing.T) {
	a := newBackendStub("lb1")
	s := a.server()
	defer s.Close()

	f := New(config.MetaWebConfig{Proxy: []string{s.URL}, Timeout: time.Second, Parallel: 10, Expire: time.Millisecond})
	f.maps["2020-01-01"] = &fleetMap{owners: map[string][]string{"lb1": {s.URL}}, refreshed: time.Now().Add(-time.Hour)}

	if err := f.Refresh(context.Background(), "2026-01-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := f.maps["2020-01-01"]; ok {
		t.Error("expected the stale date to be garbage-collected")
	}
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestID_GeneratesOneWhenAbsent(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/1.0/loadbalancer/", nil)
	rec := httptest.NewRecorder()
	withRequestID(next).ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestWithRequestID_EchoesCallerSuppliedID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/1.0/loadbalancer/", nil)
	req.Header.Set(requestIDHeader, "caller-supplied-id")
	rec := httptest.NewRecorder()
	withRequestID(next).ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "caller-supplied-id" {
		t.Errorf("request id = %q, want the caller-supplied value", got)
	}
}

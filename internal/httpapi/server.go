// Package httpapi is the C8 read/control surface: a resource tree mirroring
// the collected fleet, served live or as-of a past date, with refresh-on-read
// staleness checks and a free-text search endpoint.
package httpapi

import (
	"net/http"
	"time"

	"qcss/internal/dispatcher"
	"qcss/internal/store"
	"qcss/pkg/metrics"
)

// apiRoot prefixes every resource path Search returns, so the response is a
// set of URLs a client can fetch directly rather than bare identifiers.
const apiRoot = "/api/1.0/"

// NewServer builds the full "/api/1.0/..." mux: device resources under
// loadbalancer/{lb}/..., fleet-wide search, and the past-date wrapper that
// lets every pattern below also serve "/api/1.0/past/{isoDate}/...".
func NewServer(reader *store.Reader, disp *dispatcher.Dispatcher) http.Handler {
	h := &resourceHandlers{reader: reader, dispatcher: disp}

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+apiRoot+"loadbalancer/", h.listLoadBalancers)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/", h.getLoadBalancer)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/refresh/", h.refresh)

	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/", h.listVirtualServers)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/", h.getVirtualServer)

	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/realserver/", h.listMembers(store.KindReal))
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/realserver/{rs}/", h.getRealServer)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/sorryserver/", h.listMembers(store.KindSorry))
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/sorryserver/{rs}/", h.getSorryServer)

	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/action/", h.listActions)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/action/{action}/{args...}", h.action)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/action/", h.listActions)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/action/{action}/{args...}", h.action)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/realserver/{rs}/action/", h.listActions)
	mux.HandleFunc("GET "+apiRoot+"loadbalancer/{lb}/virtualserver/{vs}/realserver/{rs}/action/{action}/{args...}", h.action)

	mux.HandleFunc("GET "+apiRoot+"search/{term}/", h.search)

	return withRequestID(withPastDate(withMetrics(mux)))
}

// withMetrics records every request's matched route pattern (falling back
// to the raw path for an unmatched request, e.g. a 404), status, and
// duration. mux.Handler looks the pattern up without dispatching, so it can
// be read before ServeHTTP runs.
func withMetrics(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = r.URL.Path
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		metrics.Get().HTTPRequestsInFlight.Inc()
		mux.ServeHTTP(rec, r)
		metrics.Get().HTTPRequestsInFlight.Dec()

		metrics.Get().RecordHTTPRequest(pattern, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

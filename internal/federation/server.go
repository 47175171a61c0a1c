package federation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"qcss/pkg/apperror"
	"qcss/pkg/logger"
)

const apiRoot = "/api/1.0/"

// NewServer builds the federation tier's HTTP surface. It never answers
// from local state: a path naming one load balancer is proxied to that
// load balancer's owning backends with ordered failover (ProxyResource);
// anything else -- the bare load balancer list, search -- fans out to a
// covering subset of backends and the JSON array bodies are concatenated
// (GetAll).
func NewServer(f *Federator) http.Handler {
	return withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, apiRoot) {
			http.NotFound(w, r)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, apiRoot)

		date := ""
		if after, ok := strings.CutPrefix(rest, "past/"); ok {
			d, tail, found := strings.Cut(after, "/")
			if !found {
				writeError(w, apperror.New(apperror.CodeParseError, "missing path after past date"))
				return
			}
			date, rest = d, tail
		}

		if lb, ok := lbFromPath(rest); ok {
			body, backend, err := f.ProxyResource(r.Context(), date, lb, rest)
			if err != nil {
				writeError(w, err)
				return
			}
			w.Header().Set("X-QCss-Server", backend)
			writeRaw(w, http.StatusOK, body)
			return
		}

		bodies, err := f.GetAll(r.Context(), date, rest)
		if err != nil {
			writeError(w, err)
			return
		}
		writeRaw(w, http.StatusOK, concatenateArrays(bodies))
	}))
}

// requestIDHeader is both read from an inbound request (so a caller that
// already tags its own requests keeps the same id through the response) and
// always set on the outbound response.
const requestIDHeader = "X-Request-Id"

// withRequestID stamps every response with a request id, generating one
// with uuid when the caller didn't supply it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// lbFromPath extracts the load balancer name from a "loadbalancer/{lb}/…"
// path. A bare "loadbalancer/" (no name) or any other resource (e.g.
// "search/{term}/") is a fleet-wide request with no single owning backend.
func lbFromPath(path string) (string, bool) {
	const prefix = "loadbalancer/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	name, _, found := strings.Cut(strings.TrimPrefix(path, prefix), "/")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// concatenateArrays flattens a set of successful backend responses into one
// JSON array. A body that doesn't parse as an array (an error envelope, a
// bare object) is kept as a single element rather than dropped.
func concatenateArrays(bodies [][]byte) []byte {
	var all []json.RawMessage
	for _, b := range bodies {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err == nil {
			all = append(all, arr...)
			continue
		}
		all = append(all, json.RawMessage(b))
	}
	out, err := json.Marshal(all)
	if err != nil {
		return []byte("[]")
	}
	return out
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperror.StatusCode(err)
	logger.Log.Warn("federation request failed", "status", status, "error", err)
	writeRaw(w, status, []byte(fmt.Sprintf(`{"error":%q}`, err.Error())))
}

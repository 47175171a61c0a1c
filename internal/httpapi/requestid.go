package httpapi

import (
	"net/http"

	"github.com/google/uuid"
)

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

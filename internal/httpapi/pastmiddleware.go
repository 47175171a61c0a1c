package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"qcss/pkg/apperror"
)

type ctxKey int

const asOfKey ctxKey = 0

const pastPrefix = apiRoot + "past/"

// asOf returns the as-of date a request asked for, or nil for "live".
func asOf(r *http.Request) *time.Time {
	v, _ := r.Context().Value(asOfKey).(*time.Time)
	return v
}

// withPastDate rewrites a "/api/1.0/past/{isoDate}/…" request into the
// equivalent "/api/1.0/…" request with the parsed date attached to the
// context, so every resource handler below it reads from the same mux
// patterns whether the request is live or historical. Reads under a past
// date never trigger the refresh-on-read decorator (see refresh.go).
func withPastDate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, pastPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, pastPrefix)
		isoDate, rest, found := strings.Cut(rest, "/")
		if !found {
			writeError(w, apperror.New(apperror.CodeParseError, "missing path after past date"))
			return
		}

		when, err := parseISODate(isoDate)
		if err != nil {
			writeError(w, apperror.Wrap(err, apperror.CodeParseError, "invalid past date"))
			return
		}

		r2 := r.Clone(context.WithValue(r.Context(), asOfKey, &when))
		r2.URL.Path = apiRoot + rest
		next.ServeHTTP(w, r2)
	})
}

func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

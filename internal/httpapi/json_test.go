package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"qcss/pkg/apperror"
)

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 201, map[string]string{"ok": "yes"})

	if rec.Code != 201 {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=UTF-8" {
		t.Errorf("content-type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["ok"] != "yes" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteError_MapsNotFoundTo404(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.NewWithField(apperror.CodeNotFound, "load balancer not found", "dev1"))

	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWriteError_UnknownErrorMapsTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, context.Canceled)

	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

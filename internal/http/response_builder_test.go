package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerDraftReset().
		TriggerDraftChanged().
		TriggerSuccessNotification("Отчёт отправлен").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"draft:reset"`, `"draft:changed"`, `"show-notification"`, `"type":"success"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_InvalidRows(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().TriggerInvalidRows(nil).Write(w)
	if got := w.Header().Get("HX-Trigger"); !strings.Contains(got, `"rows":[]`) {
		t.Errorf("expected empty row list, got %s", got)
	}

	w = httptest.NewRecorder()
	NewHTMXResponse().TriggerInvalidRows([]string{"1", "abc"}).Write(w)
	if got := w.Header().Get("HX-Trigger"); !strings.Contains(got, `"rows":["1","abc"]`) {
		t.Errorf("expected cited rows, got %s", got)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"conflict", ConflictError("busy"), http.StatusConflict},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
				t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
			}
			if !strings.Contains(w.Body.String(), `class="notice error"`) {
				t.Errorf("body missing notice markup: %s", w.Body.String())
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "<script>alert(1)</script>").Write(w)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Fatalf("message was not escaped: %s", w.Body.String())
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"a": "b"})
	if w.Code != http.StatusUnprocessableEntity || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"a":"b"}` {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

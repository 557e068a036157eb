package client

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

func TestFileNames(t *testing.T) {
	names := FileNames()
	for _, want := range []string{"intake.js", "intake.css"} {
		if !slices.Contains(names, want) {
			t.Errorf("FileNames() = %v, missing %s", names, want)
		}
	}
}

func TestHandler(t *testing.T) {
	h := http.StripPrefix("/_live/", Handler())

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/_live/intake.js", http.StatusOK, "javascript"},
		{"/_live/intake.css", http.StatusOK, "text/css"},
		{"/_live/", http.StatusNotFound, ""},
		{"/_live/missing.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.contentType != "" && !strings.Contains(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestScriptHandlesScheduledEvent(t *testing.T) {
	js, err := GetFile("intake.js")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"phx_join", "calendly.event_scheduled", "lv-value-", "data-slot"} {
		if !strings.Contains(string(js), want) {
			t.Errorf("intake.js does not mention %q", want)
		}
	}
}

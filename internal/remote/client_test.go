package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/echo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", WithToken("secret"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var out map[string]string
	if err := c.PostJSON(context.Background(), "echo", "/echo", map[string]string{"msg": "hi"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("expected hi, got %q", out["echo"])
	}
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	err := c.PostJSON(context.Background(), "op", "/x", struct{}{}, nil)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway || se.Body != "nope" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty base url")
	}
}

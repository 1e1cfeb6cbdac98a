package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gradex/internal/config"
)

func TestSolve(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4e, 0x47}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["userid"] != "u1" || req["apikey"] != "k1" {
			t.Errorf("credentials not forwarded: %v", req)
		}
		if req["mode"] != "auto" || req["len_str"] != "6" {
			t.Errorf("mode/len_str = %q/%q", req["mode"], req["len_str"])
		}
		want := base64.StdEncoding.EncodeToString(png)
		if req["data"] != want {
			t.Errorf("data = %q, want %q", req["data"], want)
		}
		json.NewEncoder(w).Encode(map[string]string{"result": "a1b2c3"})
	}))
	defer srv.Close()

	c := New(config.CaptchaConfig{Endpoint: srv.URL, UserID: "u1", APIKey: "k1", TimeoutMs: 5000})
	got, err := c.Solve(context.Background(), png, "job-1")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got != "a1b2c3" {
		t.Errorf("Solve = %q, want %q", got, "a1b2c3")
	}
}

func TestSolveNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(config.CaptchaConfig{Endpoint: srv.URL, TimeoutMs: 5000})
	if _, err := c.Solve(context.Background(), []byte("img"), "job-1"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestSolveEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"result": ""})
	}))
	defer srv.Close()

	c := New(config.CaptchaConfig{Endpoint: srv.URL, TimeoutMs: 5000})
	if _, err := c.Solve(context.Background(), []byte("img"), "job-1"); err == nil {
		t.Error("expected error for empty result")
	}
}

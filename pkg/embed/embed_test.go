package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.APIURL == "" {
		t.Fatal("expected a non-empty default API URL")
	}
	if cfg.Model == "" {
		t.Fatal("expected a non-empty default model")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Prompt != "hello world" {
			t.Errorf("got prompt %q, want %q", req.Prompt, "hello world")
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	o := New(Config{APIURL: srv.URL, Model: "mxbai-embed-large", Timeout: time.Second})
	vec, err := o.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 || vec[2] != 0.3 {
		t.Errorf("got %v, want [0.1 0.2 0.3]", vec)
	}
}

func TestOllamaEmbedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	o := New(Config{APIURL: srv.URL, Model: "mxbai-embed-large", Timeout: time.Second})
	if _, err := o.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected an error from a non-200 response")
	}
}

func TestNewZeroConfigFallsBackToDefault(t *testing.T) {
	o := New(Config{})
	if o.config.APIURL != DefaultConfig().APIURL {
		t.Errorf("expected zero-value Config to resolve to DefaultConfig, got %+v", o.config)
	}
}

// Package embed provides the embedding client HQL's AddV/search_v sources
// take their query vectors from when callers pass text rather than a
// precomputed vector. Generating the embedding itself is out of scope for
// the database (spec §1); this package's only job is the thin HTTP client
// that talks to a local embedding sidecar, grounded on the teacher's
// pkg/embed/embed.go Ollama client, trimmed to the single opaque
// embed(string) -> vector contract the database actually needs.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder generates a vector embedding for one piece of text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Config configures an Ollama-backed Embedder.
type Config struct {
	APIURL  string
	Model   string
	Timeout time.Duration
}

// DefaultConfig targets a local Ollama instance running mxbai-embed-large.
func DefaultConfig() Config {
	return Config{
		APIURL:  "http://localhost:11434",
		Model:   "mxbai-embed-large",
		Timeout: 30 * time.Second,
	}
}

// Ollama is an Embedder backed by a local Ollama server's /api/embeddings
// endpoint.
type Ollama struct {
	config Config
	client *http.Client
}

// New constructs an Ollama embedder. A zero-value Config resolves to
// DefaultConfig.
func New(config Config) *Ollama {
	if config.APIURL == "" {
		config = DefaultConfig()
	}
	return &Ollama{config: config, client: &http.Client{Timeout: config.Timeout}}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed sends text to the configured Ollama model and returns its
// embedding.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.APIURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: ollama returned %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	return out.Embedding, nil
}

// Package embedding implements the ingestion.Embedder/chunker.Embedder
// contract against an OpenAI-compatible embeddings endpoint, adapted from
// the teacher's internal/embedding/client.go: the same request/response
// JSON shape and header-selection logic (cfg.APIHeader == "Authorization"
// vs. a custom header name), generalized from two free functions
// (EmbedText/CheckReachability) into a Client value implementing the
// orchestrator's Embedder interface, with transient failures retried via
// internal/retryutil instead of a single unretried HTTP call.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"trialgraph/internal/config"
	"trialgraph/internal/retryutil"
)

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Client implements chunker.Embedder/ingestion.Embedder against one
// configured embedding endpoint.
type Client struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client
	retry      retryutil.Config
}

// New constructs a Client. A nil httpClient falls back to http.DefaultClient.
func New(cfg config.EmbeddingConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, retry: retryutil.Default()}
}

// Embed calls the configured embedding endpoint once per batch and returns
// one vector per input string, in order. Transient request failures (non-
// 2xx status, transport errors) are retried per internal/retryutil.Default.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: no inputs")
	}
	var out [][]float32
	err := retryutil.Do(ctx, c.retry, retryutil.AlwaysRetry, func(ctx context.Context) error {
		vectors, err := c.embedOnce(ctx, texts)
		if err != nil {
			return err
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: texts})
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(c.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := c.cfg.BaseURL + c.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	if c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else if c.cfg.APIHeader != "" {
		req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings error: %s: %s", resp.Status, string(bodyBytes))
	}

	var er embedResp
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected embedding count: got %d, want %d", len(er.Data), len(texts))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}

// CheckReachability verifies the embedding endpoint responds to a small
// test request, used by process startup health checks.
func (c *Client) CheckReachability(ctx context.Context) error {
	if _, err := c.Embed(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("embedding endpoint reachability check failed: %w", err)
	}
	return nil
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/infrastructure/resilience"
)

// Client reaches the embedding gateway service that produces the dense and
// sparse query representations. The response shapes are a fixed contract;
// the client never sniffs for alternative property names.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

func NewWithOptions(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

func (c *Client) EmbedDense(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{"text": text}

	var response struct {
		Vector []float32 `json:"vector"`
	}
	err := c.call(ctx, "embedding.dense", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/embed/dense", request, &response, "dense embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Vector) == 0 {
		return nil, errors.New("empty dense embedding result")
	}
	return response.Vector, nil
}

func (c *Client) EmbedSparse(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := map[string]any{"texts": texts}

	var response struct {
		Vectors []domain.SparseVector `json:"vectors"`
	}
	err := c.call(ctx, "embedding.sparse", func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/embed/sparse", request, &response, "sparse embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Vectors) != len(texts) {
		return nil, fmt.Errorf("sparse embedding count mismatch: sent %d texts, got %d vectors",
			len(texts), len(response.Vectors))
	}
	return response.Vectors, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyGatewayError)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding gateway %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

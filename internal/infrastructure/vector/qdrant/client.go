package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/core/ports"
	"github.com/caselight/retrieval/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Client talks to Qdrant over its HTTP API. One client serves every
// collection; the target collection travels with each request.
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

func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var response struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/exists", collection)
	err := c.call(ctx, "qdrant.collection_exists", func(callCtx context.Context) error {
		return c.getJSON(callCtx, path, &response, "collection exists")
	})
	if err != nil {
		return false, err
	}
	return response.Result.Exists, nil
}

// HybridQuery issues one fused two-modality search: two prefetch branches,
// dense and sparse, each pre-filtered and capped at the prefetch limit,
// combined by the store with reciprocal rank fusion.
func (c *Client) HybridQuery(ctx context.Context, req ports.HybridQueryRequest) ([]domain.Chunk, error) {
	prefetch := []map[string]any{
		{
			"query": req.Dense,
			"using": denseVectorName,
			"limit": req.PrefetchLimit,
		},
		{
			"query": map[string]any{
				"indices": req.Sparse.Indices,
				"values":  req.Sparse.Values,
			},
			"using": sparseVectorName,
			"limit": req.PrefetchLimit,
		},
	}
	if wire := filterToWire(req.Filter); wire != nil {
		for _, branch := range prefetch {
			branch["filter"] = wire
		}
	}

	body := map[string]any{
		"prefetch":     prefetch,
		"query":        map[string]any{"fusion": "rrf"},
		"limit":        req.Limit,
		"with_payload": true,
	}

	var response queryResponse
	path := fmt.Sprintf("/collections/%s/points/query", req.Collection)
	err := c.call(ctx, "qdrant.query", func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, body, &response, "hybrid query")
	})
	if err != nil {
		return nil, err
	}
	return mapPoints(response.Result.Points, req.Mapping), nil
}

// Scroll performs a pure filter scan. Hits carry no score; callers assign
// whatever synthetic score their mode requires.
func (c *Client) Scroll(ctx context.Context, req ports.ScrollRequest) ([]domain.Chunk, error) {
	body := map[string]any{
		"limit":        req.Limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if wire := filterToWire(req.Filter); wire != nil {
		body["filter"] = wire
	}

	var response scrollResponse
	path := fmt.Sprintf("/collections/%s/points/scroll", req.Collection)
	err := c.call(ctx, "qdrant.scroll", func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, body, &response, "scroll")
	})
	if err != nil {
		return nil, err
	}
	return mapPoints(response.Result.Points, req.Mapping), nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyStoreError)
}

type point struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type queryResponse struct {
	Result struct {
		Points []point `json:"points"`
	} `json:"result"`
}

type scrollResponse struct {
	Result struct {
		Points []point `json:"points"`
	} `json:"result"`
}

func mapPoints(points []point, mapping ports.ChunkMapping) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(points))
	for _, p := range points {
		chunk := domain.Chunk{
			ID:      decodePointID(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		}
		if v, ok := p.Payload[mapping.DocumentIDField]; ok {
			chunk.DocumentID = asString(v)
		}
		if mapping.SequenceField != "" {
			if v, ok := p.Payload[mapping.SequenceField]; ok {
				if n, ok := asInt(v); ok {
					chunk.SequenceIndex = &n
				}
			}
		}
		if v, ok := p.Payload[mapping.TextField]; ok {
			chunk.Text = asString(v)
		}
		out = append(out, chunk)
	}
	return out
}

// decodePointID accepts both string and numeric point ids.
func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func asString(v any) string {
	s, ok := v.(string)
	if ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
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
	return c.doJSON(req, out, operation)
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	return c.doJSON(req, out, operation)
}

func (c *Client) doJSON(req *http.Request, out any, operation string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

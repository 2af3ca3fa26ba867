package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caselight/retrieval/internal/core/domain"
)

type retrieverFake struct {
	lastFamily string
	lastQuery  domain.RetrievalQuery
	chunks     []domain.Chunk
	err        error
}

func (f *retrieverFake) Retrieve(_ context.Context, family string, query domain.RetrievalQuery) ([]domain.Chunk, error) {
	f.lastFamily = family
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type descriptorsFake struct {
	families []domain.CollectionDescriptor
}

func (f *descriptorsFake) Families() []domain.CollectionDescriptor {
	return f.families
}

func (f *descriptorsFake) Descriptor(family string) (domain.CollectionDescriptor, bool) {
	for _, desc := range f.families {
		if desc.Family == family {
			return desc, true
		}
	}
	return domain.CollectionDescriptor{}, false
}

func newTestRouter(retriever *retrieverFake, descriptors *descriptorsFake) http.Handler {
	return NewRouter(retriever, descriptors, Limits{
		DefaultLimit:     10,
		MaxLimit:         50,
		MaxContextWindow: 5,
	}, nil).Handler()
}

func postRetrieve(t *testing.T, handler http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRetrieveReturnsChunks(t *testing.T) {
	seq := 4
	retriever := &retrieverFake{chunks: []domain.Chunk{
		{ID: "c-1", DocumentID: "doc-1", SequenceIndex: &seq, Text: "hello", Score: 0.9},
	}}
	handler := newTestRouter(retriever, &descriptorsFake{})

	rec := postRetrieve(t, handler, map[string]any{
		"family": "filings",
		"query":  "breach of contract",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Family  string `json:"family"`
		Results []struct {
			ID            string  `json:"id"`
			DocumentID    string  `json:"document_id"`
			SequenceIndex *int    `json:"sequence_index"`
			Text          string  `json:"text"`
			Score         float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Family != "filings" {
		t.Fatalf("unexpected family %q", resp.Family)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "c-1" || resp.Results[0].Text != "hello" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[0].SequenceIndex == nil || *resp.Results[0].SequenceIndex != 4 {
		t.Fatalf("sequence index not preserved: %+v", resp.Results[0].SequenceIndex)
	}

	if retriever.lastFamily != "filings" {
		t.Fatalf("family not forwarded: %q", retriever.lastFamily)
	}
	if retriever.lastQuery.Limit != 10 {
		t.Fatalf("expected default limit 10, got %d", retriever.lastQuery.Limit)
	}
}

func TestRetrieveForwardsFiltersAndWindow(t *testing.T) {
	retriever := &retrieverFake{}
	handler := newTestRouter(retriever, &descriptorsFake{})

	rec := postRetrieve(t, handler, map[string]any{
		"family": "filings",
		"query":  "injunction",
		"filters": []map[string]any{
			{"field": "case_number", "equals": "2024-cv-001"},
			{"field": "filed_at", "gte": "2024-01-01", "lte": "2024-06-30"},
		},
		"limit":          7,
		"context_window": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	q := retriever.lastQuery
	if q.Limit != 7 || q.ContextWindow != 2 {
		t.Fatalf("limit/window not forwarded: %+v", q)
	}
	if len(q.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(q.Criteria))
	}
	if q.Criteria[0].Field != "case_number" || q.Criteria[0].Equals != "2024-cv-001" {
		t.Fatalf("equals criterion not forwarded: %+v", q.Criteria[0])
	}
	if q.Criteria[1].GTE != "2024-01-01" || q.Criteria[1].LTE != "2024-06-30" {
		t.Fatalf("range criterion not forwarded: %+v", q.Criteria[1])
	}
}

func TestRetrieveClampsLimitAndWindow(t *testing.T) {
	retriever := &retrieverFake{}
	handler := newTestRouter(retriever, &descriptorsFake{})

	rec := postRetrieve(t, handler, map[string]any{
		"family":         "filings",
		"query":          "motion",
		"limit":          9000,
		"context_window": 40,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if retriever.lastQuery.Limit != 50 {
		t.Fatalf("limit not clamped: %d", retriever.lastQuery.Limit)
	}
	if retriever.lastQuery.ContextWindow != 5 {
		t.Fatalf("window not clamped: %d", retriever.lastQuery.ContextWindow)
	}
}

func TestRetrieveRejectsMissingFamily(t *testing.T) {
	handler := newTestRouter(&retrieverFake{}, &descriptorsFake{})

	rec := postRetrieve(t, handler, map[string]any{"query": "anything"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRetrieveMapsErrorKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("bad field")), http.StatusBadRequest},
		{"unknown family", domain.WrapError(domain.ErrConfiguration, "retrieve", errors.New("no descriptor")), http.StatusUnprocessableEntity},
		{"embedding down", domain.WrapError(domain.ErrEmbeddingUpstream, "retrieve", errors.New("timeout")), http.StatusBadGateway},
		{"store down", domain.WrapError(domain.ErrVectorStore, "retrieve", errors.New("refused")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "retrieve", errors.New("circuit open")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&retrieverFake{err: tc.err}, &descriptorsFake{})
			rec := postRetrieve(t, handler, map[string]any{"family": "filings", "query": "x"})
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRetrieveHidesInternalErrorDetails(t *testing.T) {
	handler := newTestRouter(&retrieverFake{err: errors.New("dsn=secret")}, &descriptorsFake{})
	rec := postRetrieve(t, handler, map[string]any{"family": "filings", "query": "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestListFamilies(t *testing.T) {
	descriptors := &descriptorsFake{families: []domain.CollectionDescriptor{
		{
			Family:          "filings",
			Collection:      "filings_chunks",
			DocumentIDField: "document_id",
			SequenceField:   "chunk_index",
			TextField:       "text",
			FilterFields: map[string]domain.FilterFieldSpec{
				"filed_at":    {Fields: []string{"filed_at"}, Kind: domain.FieldKindDate},
				"case_number": {Fields: []string{"case_number"}, Kind: domain.FieldKindKeyword},
			},
		},
		{
			Family:          "exhibits",
			Collection:      "exhibit_chunks",
			DocumentIDField: "exhibit_id",
			TextField:       "text",
		},
	}}
	handler := newTestRouter(&retrieverFake{}, descriptors)

	req := httptest.NewRequest(http.MethodGet, "/v1/families", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Families []struct {
			Family       string   `json:"family"`
			FilterFields []string `json:"filter_fields"`
			Sequenced    bool     `json:"sequenced"`
		} `json:"families"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(resp.Families))
	}
	if resp.Families[0].Family != "filings" || !resp.Families[0].Sequenced {
		t.Fatalf("unexpected first family: %+v", resp.Families[0])
	}
	if got := resp.Families[0].FilterFields; len(got) != 2 || got[0] != "case_number" || got[1] != "filed_at" {
		t.Fatalf("filter fields not sorted: %v", got)
	}
	if resp.Families[1].Sequenced {
		t.Fatalf("exhibits must not report a sequence field")
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&retrieverFake{}, &descriptorsFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
}

func TestRequestIDIsPreserved(t *testing.T) {
	handler := newTestRouter(&retrieverFake{}, &descriptorsFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected preserved request id, got %q", got)
	}
}

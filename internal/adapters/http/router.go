package httpadapter

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/caselight/retrieval/internal/core/domain"
	"github.com/caselight/retrieval/internal/core/ports"
)

// Limits bound the caller-supplied knobs before they reach the engine.
type Limits struct {
	DefaultLimit     int
	MaxLimit         int
	MaxContextWindow int
}

type Router struct {
	retriever   ports.Retriever
	descriptors ports.DescriptorReader
	limits      Limits
	metrics     http.Handler
}

func NewRouter(
	retriever ports.Retriever,
	descriptors ports.DescriptorReader,
	limits Limits,
	metrics http.Handler,
) *Router {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 10
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 50
	}
	if limits.MaxContextWindow <= 0 {
		limits.MaxContextWindow = 5
	}
	return &Router{
		retriever:   retriever,
		descriptors: descriptors,
		limits:      limits,
		metrics:     metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/families", rt.listFamilies)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Family        string             `json:"family"`
	Query         string             `json:"query"`
	Filters       []domain.Criterion `json:"filters"`
	Limit         *int               `json:"limit"`
	ContextWindow *int               `json:"context_window"`
}

type chunkResponse struct {
	ID            string         `json:"id"`
	DocumentID    string         `json:"document_id,omitempty"`
	SequenceIndex *int           `json:"sequence_index,omitempty"`
	Text          string         `json:"text"`
	Score         float64        `json:"score"`
	Payload       map[string]any `json:"payload,omitempty"`
}

type retrieveResponse struct {
	Family  string          `json:"family"`
	Results []chunkResponse `json:"results"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Family) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "family is required"})
		return
	}

	limit := rt.limits.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit > rt.limits.MaxLimit {
		limit = rt.limits.MaxLimit
	}

	window := 0
	if req.ContextWindow != nil {
		window = *req.ContextWindow
	}
	if window > rt.limits.MaxContextWindow {
		window = rt.limits.MaxContextWindow
	}

	chunks, err := rt.retriever.Retrieve(r.Context(), req.Family, domain.RetrievalQuery{
		Text:          req.Query,
		Criteria:      req.Filters,
		Limit:         limit,
		ContextWindow: window,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := retrieveResponse{Family: req.Family, Results: make([]chunkResponse, 0, len(chunks))}
	for _, chunk := range chunks {
		out.Results = append(out.Results, chunkResponse{
			ID:            chunk.ID,
			DocumentID:    chunk.DocumentID,
			SequenceIndex: chunk.SequenceIndex,
			Text:          chunk.Text,
			Score:         chunk.Score,
			Payload:       chunk.Payload,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type familyResponse struct {
	Family       string   `json:"family"`
	FilterFields []string `json:"filter_fields"`
	Sequenced    bool     `json:"sequenced"`
}

func (rt *Router) listFamilies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	descriptors := rt.descriptors.Families()
	out := make([]familyResponse, 0, len(descriptors))
	for _, desc := range descriptors {
		fields := make([]string, 0, len(desc.FilterFields))
		for name := range desc.FilterFields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		out = append(out, familyResponse{
			Family:       desc.Family,
			FilterFields: fields,
			Sequenced:    desc.SequenceField != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": out})
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package httpadapter

import (
	"net/http"

	"github.com/caselight/retrieval/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrEmbeddingUpstream):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrVectorStore):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package ports

import (
	"context"

	"github.com/caselight/retrieval/internal/core/domain"
)

// Retriever is the inbound contract for hybrid retrieval against one
// document family.
type Retriever interface {
	Retrieve(ctx context.Context, family string, query domain.RetrievalQuery) ([]domain.Chunk, error)
}

// DescriptorReader exposes the configured document families.
type DescriptorReader interface {
	Families() []domain.CollectionDescriptor
	Descriptor(family string) (domain.CollectionDescriptor, bool)
}

package descriptors

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/caselight/retrieval/internal/core/domain"
)

// Registry holds the validated collection descriptors loaded at startup.
// It is read-only after construction, so lookups need no locking.
type Registry struct {
	byFamily map[string]domain.CollectionDescriptor
	ordered  []domain.CollectionDescriptor
}

type descriptorFile struct {
	Families []domain.CollectionDescriptor `yaml:"families"`
}

// LoadFile reads a descriptor YAML file and returns a registry. Duplicate
// family names and invalid descriptors are rejected so a misconfigured
// deployment fails at startup rather than at query time.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Registry, error) {
	var file descriptorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse descriptor yaml: %w", err)
	}
	if len(file.Families) == 0 {
		return nil, fmt.Errorf("descriptor file declares no families")
	}

	byFamily := make(map[string]domain.CollectionDescriptor, len(file.Families))
	for _, desc := range file.Families {
		if err := desc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := byFamily[desc.Family]; exists {
			return nil, fmt.Errorf("descriptor family %q declared twice", desc.Family)
		}
		byFamily[desc.Family] = desc
	}

	ordered := make([]domain.CollectionDescriptor, 0, len(byFamily))
	for _, desc := range byFamily {
		ordered = append(ordered, desc)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Family < ordered[j].Family })

	return &Registry{byFamily: byFamily, ordered: ordered}, nil
}

func (r *Registry) Families() []domain.CollectionDescriptor {
	out := make([]domain.CollectionDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Descriptor(family string) (domain.CollectionDescriptor, bool) {
	desc, ok := r.byFamily[family]
	return desc, ok
}

package domain

import (
	"errors"
	"fmt"
)

// FilterFieldKind tells the translator how to coerce criterion values for
// a logical filter field.
type FilterFieldKind string

const (
	FieldKindKeyword FilterFieldKind = "keyword"
	FieldKindNumber  FilterFieldKind = "number"
	FieldKindDate    FilterFieldKind = "date"
)

// FilterFieldSpec maps a logical filter field onto one or more payload
// field names. More than one name means legacy aliases: a match on any of
// them satisfies the criterion, so the translator emits a should group.
type FilterFieldSpec struct {
	Fields []string        `yaml:"fields"`
	Kind   FilterFieldKind `yaml:"kind"`
}

// CollectionDescriptor parameterizes the retrieval engine for one document
// family: which collection to search, which payload fields carry document
// identity and chunk sequence position, and which logical filter fields
// callers may use.
type CollectionDescriptor struct {
	Family          string                     `yaml:"family"`
	Collection      string                     `yaml:"collection"`
	DocumentIDField string                     `yaml:"document_id_field"`
	SequenceField   string                     `yaml:"sequence_field"`
	TextField       string                     `yaml:"text_field"`
	FilterFields    map[string]FilterFieldSpec `yaml:"filter_fields"`
}

func (d CollectionDescriptor) Validate() error {
	if d.Family == "" {
		return errors.New("descriptor family is required")
	}
	if d.Collection == "" {
		return fmt.Errorf("descriptor %q: collection is required", d.Family)
	}
	if d.DocumentIDField == "" {
		return fmt.Errorf("descriptor %q: document_id_field is required", d.Family)
	}
	if d.TextField == "" {
		return fmt.Errorf("descriptor %q: text_field is required", d.Family)
	}
	for name, spec := range d.FilterFields {
		if len(spec.Fields) == 0 {
			return fmt.Errorf("descriptor %q: filter field %q maps to no payload fields", d.Family, name)
		}
		switch spec.Kind {
		case FieldKindKeyword, FieldKindNumber, FieldKindDate, "":
		default:
			return fmt.Errorf("descriptor %q: filter field %q has unknown kind %q", d.Family, name, spec.Kind)
		}
	}
	return nil
}

// FieldKind returns the declared kind for a logical field, defaulting to
// keyword when unset.
func (d CollectionDescriptor) FieldKind(name string) FilterFieldKind {
	spec, ok := d.FilterFields[name]
	if !ok || spec.Kind == "" {
		return FieldKindKeyword
	}
	return spec.Kind
}

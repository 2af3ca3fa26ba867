package descriptors

import (
	"strings"
	"testing"

	"github.com/caselight/retrieval/internal/core/domain"
)

const sampleYAML = `
families:
  - family: filings
    collection: filings_chunks
    document_id_field: document_id
    sequence_field: chunk_index
    text_field: text
    filter_fields:
      case_number:
        fields: [case_number, legacy_case_no]
        kind: keyword
      filed_at:
        fields: [filed_at]
        kind: date
  - family: transcripts
    collection: transcript_chunks
    document_id_field: transcript_id
    text_field: body
`

func TestParseValidFile(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	families := reg.Families()
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
	if families[0].Family != "filings" || families[1].Family != "transcripts" {
		t.Fatalf("families not sorted by name: %v, %v", families[0].Family, families[1].Family)
	}

	desc, ok := reg.Descriptor("filings")
	if !ok {
		t.Fatal("filings descriptor missing")
	}
	if desc.Collection != "filings_chunks" {
		t.Fatalf("unexpected collection %q", desc.Collection)
	}
	spec, ok := desc.FilterFields["case_number"]
	if !ok {
		t.Fatal("case_number filter field missing")
	}
	if len(spec.Fields) != 2 || spec.Fields[1] != "legacy_case_no" {
		t.Fatalf("alias fields not parsed: %v", spec.Fields)
	}
	if desc.FieldKind("filed_at") != domain.FieldKindDate {
		t.Fatalf("expected date kind, got %q", desc.FieldKind("filed_at"))
	}

	if _, ok := reg.Descriptor("unknown"); ok {
		t.Fatal("unknown family must not resolve")
	}
}

func TestParseSequenceFieldIsOptional(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	desc, _ := reg.Descriptor("transcripts")
	if desc.SequenceField != "" {
		t.Fatalf("expected empty sequence field, got %q", desc.SequenceField)
	}
}

func TestParseRejectsDuplicateFamily(t *testing.T) {
	doubled := sampleYAML + `
  - family: filings
    collection: other
    document_id_field: id
    text_field: text
`
	_, err := Parse([]byte(doubled))
	if err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Fatalf("expected duplicate-family error, got %v", err)
	}
}

func TestParseRejectsInvalidDescriptor(t *testing.T) {
	_, err := Parse([]byte(`
families:
  - family: filings
    collection: filings_chunks
    text_field: text
`))
	if err == nil || !strings.Contains(err.Error(), "document_id_field") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRejectsEmptyFile(t *testing.T) {
	if _, err := Parse([]byte("families: []")); err == nil {
		t.Fatal("expected error for empty family list")
	}
}

package extract

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"resume-matcher/internal/extract/extracttest"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/telemetry"
)

func TestPDFExtract(t *testing.T) {
	data := extracttest.PDF("Proficient in Go, SQL.", "Five years at Acme.")
	text, err := PDF{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Proficient in Go, SQL.") || !strings.Contains(text, "Acme") {
		t.Fatalf("unexpected text %q", text)
	}
	if text != strings.TrimSpace(text) {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestPDFExtractFailures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("this is plain text, not a PDF")},
		{name: "truncated", data: extracttest.PDF("hello")[:60]},
		{name: "no text", data: extracttest.PDF("   ")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := PDF{}.Extract(context.Background(), tt.data)
			if !errors.Is(err, apperr.ErrExtraction) {
				t.Fatalf("expected extraction error, got %v", err)
			}
		})
	}
}

func TestDOCXExtract(t *testing.T) {
	data := extracttest.DOCX("Jane Doe", "Experience with Kubernetes, Terraform.")
	text, err := DOCX{}.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Jane Doe\nExperience with Kubernetes, Terraform." {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := (DOCX{}).Extract(context.Background(), extracttest.DOCX()); !errors.Is(err, apperr.ErrExtraction) {
		t.Fatalf("expected extraction error for empty body, got %v", err)
	}
	if _, err := (DOCX{}).Extract(context.Background(), []byte("PK not really")); !errors.Is(err, apperr.ErrExtraction) {
		t.Fatalf("expected extraction error for bad zip, got %v", err)
	}
}

func TestExtractHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (PDF{}).Extract(ctx, []byte("%PDF")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := r.For("Resume.PDF"); !ok {
		t.Fatalf("expected .pdf to be enabled by default")
	}
	if _, ok := r.For("resume.docx"); ok {
		t.Fatalf("expected .docx to be disabled by default")
	}
	if _, ok := r.For("README"); ok {
		t.Fatalf("expected extensionless file to be unsupported")
	}

	r, err = NewRegistry("pdf", " .DOCX ", "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Extensions(); !reflect.DeepEqual(got, []string{".docx", ".pdf"}) {
		t.Fatalf("Extensions = %v", got)
	}

	if _, err := NewRegistry(".rtf"); err == nil {
		t.Fatalf("expected error for extension without extractor")
	}
}

func TestFileBackedRemovesTempFile(t *testing.T) {
	defer telemetry.SetOutput(io.Discard)()
	dir := t.TempDir()

	r, err := NewRegistry(".pdf", ".docx")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	r.WrapFileBacked(dir)

	ex, _ := r.For("cv.docx")
	if _, ok := ex.(*FileBacked); !ok {
		t.Fatalf("expected file backed extractor, got %T", ex)
	}
	text, err := ex.Extract(context.Background(), extracttest.DOCX("Skilled in Rust"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "Skilled in Rust" {
		t.Fatalf("unexpected text %q", text)
	}

	ex, _ = r.For("cv.pdf")
	if _, err := ex.Extract(context.Background(), []byte("garbage")); !errors.Is(err, apperr.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, filepath.Join(dir, e.Name()))
		}
		t.Fatalf("temp files left behind: %v", names)
	}
}

func TestStripDocxXML(t *testing.T) {
	raw := `<w:document><w:body><w:p><w:r><w:t>Line one</w:t></w:r></w:p><w:p><w:r><w:t>Line two</w:t></w:r></w:p></w:body></w:document>`
	if got := stripDocxXML(raw); got != "Line one\nLine two" {
		t.Fatalf("stripDocxXML = %q", got)
	}
}

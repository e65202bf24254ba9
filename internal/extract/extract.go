package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resume-matcher/internal/shared/apperr"
)

// Extractor turns a document payload into plain text.
// Implementations return apperr.Extraction errors for unreadable or empty documents.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// FileExtractor reads a document from a local path.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

// PDF extracts text from PDF documents page by page.
type PDF struct{}

func (PDF) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.Extraction("empty pdf data", nil)
	}
	return readPDF(func() (*pdf.Reader, func(), error) {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		return r, func() {}, err
	})
}

func (PDF) ExtractFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return readPDF(func() (*pdf.Reader, func(), error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return nil, func() {}, err
		}
		return r, func() { f.Close() }, nil
	})
}

// readPDF concatenates the plain text of every page in order. The decoder panics on some
// malformed inputs, so panics are converted to extraction errors.
func readPDF(open func() (*pdf.Reader, func(), error)) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = apperr.Extraction("read pdf", fmt.Errorf("decoder panic: %v", rec))
		}
	}()

	r, closeFn, err := open()
	if err != nil {
		return "", apperr.Extraction("read pdf", err)
	}
	defer closeFn()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperr.Extraction(fmt.Sprintf("read pdf page %d", i), err)
		}
		b.WriteString(content)
	}
	return nonEmpty("pdf", b.String())
}

// DOCX extracts the body text of Word documents.
type DOCX struct{}

func (DOCX) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", apperr.Extraction("empty docx data", nil)
	}
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Extraction("read docx", err)
	}
	defer r.Close()
	return nonEmpty("docx", stripDocxXML(r.Editable().GetContent()))
}

func (DOCX) ExtractFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", apperr.Extraction("read docx", err)
	}
	defer r.Close()
	return nonEmpty("docx", stripDocxXML(r.Editable().GetContent()))
}

func nonEmpty(format, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Extraction(format+" contains no extractable text", nil)
	}
	return text, nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// Registry maps lower-case file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry enables the given extensions, or ".pdf" when none are given.
// Unknown extensions are reported as an error.
func NewRegistry(extensions ...string) (*Registry, error) {
	r := &Registry{byExt: map[string]Extractor{}}
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	for _, ext := range extensions {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		switch ext {
		case ".pdf":
			r.byExt[ext] = PDF{}
		case ".docx":
			r.byExt[ext] = DOCX{}
		default:
			return nil, fmt.Errorf("no extractor for extension %q", ext)
		}
	}
	if len(r.byExt) == 0 {
		return nil, errors.New("no document extensions enabled")
	}
	return r, nil
}

// Register installs or replaces the extractor for ext.
func (r *Registry) Register(ext string, ex Extractor) {
	r.byExt[normalizeExt(ext)] = ex
}

// For returns the extractor for fileName's extension.
func (r *Registry) For(fileName string) (Extractor, bool) {
	ex, ok := r.byExt[normalizeExt(filepath.Ext(fileName))]
	return ex, ok
}

// Extensions lists the enabled extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// WrapFileBacked replaces every extractor that can read from disk with a FileBacked wrapper.
func (r *Registry) WrapFileBacked(dir string) {
	for ext, ex := range r.byExt {
		if fe, ok := ex.(FileExtractor); ok {
			r.byExt[ext] = &FileBacked{Inner: fe, Dir: dir, Suffix: ext}
		}
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var (
	_ Extractor     = PDF{}
	_ FileExtractor = PDF{}
	_ Extractor     = DOCX{}
	_ FileExtractor = DOCX{}
)

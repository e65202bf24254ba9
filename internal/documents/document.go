package documents

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"resume-matcher/internal/shared/apperr"
)

// MaxBytes caps a single document payload.
const MaxBytes = 10 << 20 // 10MB

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document is one uploaded resume: a display name plus its raw bytes. Err is set when the
// document could not be read; Content is then empty and the document is reported as failed.
type Document struct {
	FileName string
	Content  []byte
	MimeType string
	Err      error
}

// New builds a Document and infers its MIME type.
func New(fileName string, content []byte) Document {
	return Document{
		FileName: fileName,
		Content:  content,
		MimeType: MimeTypeFor(fileName, content),
	}
}

// Unreadable records a document that failed to load so it still gets its own result.
func Unreadable(fileName string, err error) Document {
	return Document{FileName: fileName, Err: err}
}

// Ext returns the lower-case file extension including the dot.
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.FileName))
}

// MimeTypeFor maps known extensions and falls back to content sniffing.
func MimeTypeFor(fileName string, content []byte) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	}
	return http.DetectContentType(content)
}

// Read drains r into a Document, failing with a validation error past MaxBytes.
func Read(fileName string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", fileName, err)
	}
	if len(data) > MaxBytes {
		return Document{}, apperr.Validationf("%s exceeds the %d byte limit", fileName, MaxBytes)
	}
	return New(fileName, data), nil
}

// FromMultipart reads an uploaded form file.
func FromMultipart(fh *multipart.FileHeader) (Document, error) {
	f, err := fh.Open()
	if err != nil {
		return Document{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return Read(fh.Filename, f)
}

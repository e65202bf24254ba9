package extract

import (
	"context"
	"fmt"
	"os"

	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/telemetry"
)

// FileBacked spools each payload to its own temporary file before extraction and removes the
// file on every path. Each call owns a distinct file, so concurrent use is safe.
type FileBacked struct {
	Inner  FileExtractor
	Dir    string
	Suffix string
}

func (f *FileBacked) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(f.Dir, "resume-*"+f.Suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			telemetry.Warn("extract.temp_cleanup_failed", map[string]any{"path": path, "err": rmErr})
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", apperr.Extraction("spool document", err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Extraction("spool document", err)
	}
	return f.Inner.ExtractFile(ctx, path)
}

var _ Extractor = (*FileBacked)(nil)

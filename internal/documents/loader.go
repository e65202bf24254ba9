package documents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/storage/object"
	"resume-matcher/internal/shared/util"
)

// Loader reads documents from an object store by key.
type Loader struct {
	Store object.ObjectStore
}

// NewLoader constructs a Loader.
func NewLoader(store object.ObjectStore) *Loader {
	return &Loader{Store: store}
}

// Load returns one Document per key, in order. A key that cannot be loaded yields an
// Unreadable document carrying a classified error; only a missing store fails the call.
// The display name is the sanitized base of the key.
func (l *Loader) Load(ctx context.Context, keys []string) ([]Document, error) {
	if l == nil || l.Store == nil {
		return nil, apperr.Configuration("document store is not configured")
	}
	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, l.loadOne(ctx, strings.TrimSpace(key)))
	}
	return docs, nil
}

func (l *Loader) loadOne(ctx context.Context, key string) Document {
	if key == "" {
		return Unreadable("", apperr.Validation("document key is required"))
	}
	base := path.Base(key)
	name, err := util.SanitizeFileName(base)
	if err != nil {
		return Unreadable(base, apperr.Validationf("invalid document key %q", key))
	}

	rc, err := l.Store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Unreadable(name, &apperr.Error{
				Kind:    apperr.KindValidation,
				Message: fmt.Sprintf("document %s not found", key),
				Err:     err,
			})
		}
		return Unreadable(name, apperr.ExternalService("load document "+key, err))
	}
	defer rc.Close()

	doc, err := Read(name, rc)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.ExternalService("load document "+key, err)
		}
		return Unreadable(name, err)
	}
	return doc
}

// Package store reads configuration documents (such as the brand
// properties map) addressed by collection and document name.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = eris.New("store: document not found")

// Document is one stored configuration document.
type Document struct {
	Collection string
	Name       string
	Data       json.RawMessage
}

// Store reads documents. Data is returned as JSON with object keys in
// their stored order.
type Store interface {
	GetDocument(ctx context.Context, collection, document string) (json.RawMessage, error)
	Close() error
}

// Writer is a Store that can be migrated and seeded.
type Writer interface {
	Store
	Migrate(ctx context.Context) error
	PutDocuments(ctx context.Context, docs []Document) (int64, error)
}

func notFound(collection, document string) error {
	return eris.Wrapf(ErrNotFound, "store: %s/%s", collection, document)
}

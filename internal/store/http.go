package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sells-group/awards-cli/pkg/jsonprovider"
)

// HTTPStore reads documents from a remote json-provider API.
type HTTPStore struct {
	client jsonprovider.Client
}

// NewHTTPStore creates a store backed by client.
func NewHTTPStore(client jsonprovider.Client) *HTTPStore {
	return &HTTPStore{client: client}
}

// Close implements Store.
func (h *HTTPStore) Close() error { return nil }

// GetDocument implements Store.
func (h *HTTPStore) GetDocument(ctx context.Context, collection, document string) (json.RawMessage, error) {
	data, err := h.client.Document(ctx, collection, document)
	if errors.Is(err, jsonprovider.ErrNotFound) {
		return nil, notFound(collection, document)
	}
	return data, err
}

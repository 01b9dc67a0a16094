// Package registry loads the brands that take part in award aggregation
// from the brand properties document.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/store"
)

// ErrBrandNotFound is returned by Brand for unknown or award-less brands.
var ErrBrandNotFound = eris.New("registry: brand not found or no awards")

// Loader reads award brands from a document store.
type Loader struct {
	store      store.Store
	collection string
	document   string
}

// NewLoader creates a Loader for the brand properties document at
// collection/document.
func NewLoader(st store.Store, collection, document string) *Loader {
	return &Loader{store: st, collection: collection, document: document}
}

// AwardBrands returns the brands with awards enabled and a site URL, in
// document order. A missing or malformed document yields no brands; only
// store failures are errors.
func (l *Loader) AwardBrands(ctx context.Context) ([]model.Brand, error) {
	raw, err := l.store.GetDocument(ctx, l.collection, l.document)
	if errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("registry: brand document not found",
			zap.String("collection", l.collection),
			zap.String("document", l.document),
		)
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: load brand document")
	}

	brands, err := ParseBrands(raw)
	if err != nil {
		zap.L().Warn("registry: malformed brand document", zap.Error(err))
		return nil, nil
	}
	zap.L().Debug("registry: award brands loaded", zap.Strings("brands", model.BrandIDs(brands)))
	return brands, nil
}

// Brand returns the award brand with the given ID.
func (l *Loader) Brand(ctx context.Context, id string) (model.Brand, error) {
	brands, err := l.AwardBrands(ctx)
	if err != nil {
		return model.Brand{}, err
	}
	for _, b := range brands {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Brand{}, eris.Wrapf(ErrBrandNotFound, "registry: %q", id)
}

// ParseBrands reads a brand properties document: an object keyed by brand
// ID whose values carry "url", "awards" and an optional "name". Brands
// are returned in key order; entries that are not objects, lack a URL, or
// have a falsy awards flag are skipped.
func ParseBrands(raw json.RawMessage) ([]model.Brand, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrap(err, "registry: parse brand document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.New("registry: brand document is not an object")
	}

	var brands []model.Brand
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrap(err, "registry: parse brand key")
		}
		id, _ := keyTok.(string)

		var site map[string]json.RawMessage
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, eris.Wrapf(err, "registry: parse brand %q", id)
		}
		if err := json.Unmarshal(value, &site); err != nil || site == nil {
			continue
		}

		url := stringValue(site["url"])
		if url == "" || !truthy(site["awards"]) {
			continue
		}
		brands = append(brands, model.Brand{
			ID:          id,
			DisplayName: stringValue(site["name"]),
			BaseURL:     url,
		})
	}
	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrap(err, "registry: parse brand document")
	}
	return brands, nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// truthy follows JavaScript truthiness, except that the strings "false"
// and "0" are treated as off.
func truthy(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "false" && t != "0"
	case nil:
		return false
	default:
		return true
	}
}

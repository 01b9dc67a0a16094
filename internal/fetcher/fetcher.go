// Package fetcher retrieves JSON feeds and HTML pages from brand sites.
package fetcher

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Kind is the expected body type of a fetch.
type Kind string

const (
	KindJSON Kind = "json"
	KindHTML Kind = "html"
)

// Fetcher downloads brand resources. Implementations return errors; callers
// decide what neutral value a failure degrades to.
type Fetcher interface {
	// GetJSON fetches url and decodes the body into v.
	GetJSON(ctx context.Context, url string, v any) error
	// GetHTML fetches url and parses the body as an HTML document.
	GetHTML(ctx context.Context, url string) (*goquery.Document, error)
}

// Observer receives one call per fetch with its outcome label.
type Observer interface {
	ObserveFetch(kind Kind, outcome string, elapsed time.Duration)
}

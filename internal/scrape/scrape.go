// Package scrape extracts award data from brand HTML pages: nomination
// windows from detail pages and title/image tiles from award index pages.
package scrape

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Tile is one award card scraped from an index page.
type Tile struct {
	Title string
	Image string
}

// Extractor finds tiles for one page layout. Tiles are returned in
// document order with images resolved against base.
type Extractor interface {
	Name() string
	Extract(doc *goquery.Document, base *url.URL) []Tile
}

package scrape

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/award"
)

// Chain runs every extractor against a page in order. Unlike a fallback
// chain, all layouts contribute: brand pages often mix templates.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a Chain that runs extractors in the given order.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// DefaultChain returns the layouts seen on brand award index pages.
func DefaultChain() *Chain {
	return NewChain(ItemListExtractor{}, ImageWidgetExtractor{}, ImageBoxExtractor{})
}

// Tiles returns the tiles of every extractor, concatenated in chain order.
func (c *Chain) Tiles(doc *goquery.Document, base *url.URL) []Tile {
	var tiles []Tile
	for _, e := range c.extractors {
		found := e.Extract(doc, base)
		if len(found) > 0 {
			zap.L().Debug("scrape: extractor matched",
				zap.String("extractor", e.Name()),
				zap.Int("tiles", len(found)),
			)
		}
		tiles = append(tiles, found...)
	}
	return tiles
}

// ImageMap builds a brand's title to image map from a page. Tiles are
// applied in order, so a later tile with the same title replaces an
// earlier one.
func (c *Chain) ImageMap(doc *goquery.Document, baseURL string) *award.ImageMap {
	m := award.NewImageMap()
	if doc == nil {
		return m
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		zap.L().Warn("scrape: invalid base url", zap.String("url", baseURL), zap.Error(err))
		return m
	}
	for _, t := range c.Tiles(doc, base) {
		m.Set(t.Title, t.Image)
	}
	return m
}

package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ItemListExtractor reads the bordered item list used by Drupal brand sites.
type ItemListExtractor struct{}

// Name implements Extractor.
func (ItemListExtractor) Name() string { return "item_list" }

// Extract implements Extractor.
func (ItemListExtractor) Extract(doc *goquery.Document, base *url.URL) []Tile {
	var tiles []Tile
	doc.Find(".view-content .item.with-border-bottom").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".item__title a").Text())
		image := tileImage(s, base)
		if title != "" && image != "" {
			tiles = append(tiles, Tile{Title: title, Image: image})
		}
	})
	return tiles
}

// ImageWidgetExtractor reads Elementor image widgets, titled by the first
// link's title attribute or, failing that, the text of all links.
type ImageWidgetExtractor struct{}

// Name implements Extractor.
func (ImageWidgetExtractor) Name() string { return "image_widget" }

// Extract implements Extractor.
func (ImageWidgetExtractor) Extract(doc *goquery.Document, base *url.URL) []Tile {
	var tiles []Tile
	doc.Find(".elementor-widget-image").Each(func(_ int, s *goquery.Selection) {
		links := s.Find("a")
		title := strings.TrimSpace(links.First().AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(links.Text())
		}
		image := tileImage(s, base)
		if title != "" && image != "" {
			tiles = append(tiles, Tile{Title: title, Image: image})
		}
	})
	return tiles
}

// ImageBoxExtractor reads Elementor image boxes, which carry the title in
// a heading beside the image.
type ImageBoxExtractor struct{}

// Name implements Extractor.
func (ImageBoxExtractor) Name() string { return "image_box" }

// Extract implements Extractor.
func (ImageBoxExtractor) Extract(doc *goquery.Document, base *url.URL) []Tile {
	var tiles []Tile
	doc.Find(".elementor-image-box-wrapper").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".elementor-image-box-title").First().Text())
		image := tileImage(s, base)
		if title != "" && image != "" {
			tiles = append(tiles, Tile{Title: title, Image: image})
		}
	})
	return tiles
}

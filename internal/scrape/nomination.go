package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/awards-cli/internal/award"
)

var dateAttrs = []string{"date", "datetime", "content"}

// NominationWindow reads the submission open and close dates from an award
// detail page. Each value is a UTC timestamp with milliseconds, or nil when
// the element is missing or its date does not parse.
func NominationWindow(doc *goquery.Document) (start, end *string) {
	if doc == nil {
		return nil, nil
	}
	return windowDate(doc, ".nomination-date .start-date"), windowDate(doc, ".nomination-date .end-date")
}

func windowDate(doc *goquery.Document, selector string) *string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	for _, attr := range dateAttrs {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			return award.FormatTimestamp(v)
		}
	}
	return nil
}

package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// srcAttrs lists image attributes by preference.
var srcAttrs = []string{"data-srcset", "srcset", "data-src", "src"}

// BestSrc returns the preferred image URL of img: the last srcset candidate,
// then the lazy-load source, then src. It returns "" when none is set.
func BestSrc(img *goquery.Selection) string {
	for _, attr := range srcAttrs {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		if strings.HasSuffix(attr, "srcset") {
			v = LastSrcsetCandidate(v)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

// LastSrcsetCandidate returns the URL of the last srcset entry.
func LastSrcsetCandidate(srcset string) string {
	parts := strings.Split(srcset, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if fields := strings.Fields(parts[i]); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// ResolveURL resolves ref against base. Unparseable refs resolve to "".
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func tileImage(sel *goquery.Selection, base *url.URL) string {
	img := sel.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	return ResolveURL(base, BestSrc(img))
}

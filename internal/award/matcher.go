package award

import (
	"strings"
	"unicode"
)

// TitleMatcher finds the image for an award title in a brand's ImageMap.
type TitleMatcher interface {
	Match(title string, images *ImageMap) (string, bool)
}

// SubstringMatcher accepts the first entry whose title contains the award
// title or is contained by it.
type SubstringMatcher struct{}

// Match implements TitleMatcher.
func (SubstringMatcher) Match(title string, images *ImageMap) (string, bool) {
	want := NormalizeTitle(title)
	if want == "" {
		return "", false
	}
	var found string
	images.Each(func(key, url string) bool {
		if strings.Contains(key, want) || strings.Contains(want, key) {
			found = url
			return false
		}
		return true
	})
	return found, found != ""
}

// TokenSetMatcher scores entries by Jaccard similarity of their word sets
// and accepts the first entry with the best score at or above Threshold.
type TokenSetMatcher struct {
	Threshold float64
}

// Match implements TitleMatcher.
func (m TokenSetMatcher) Match(title string, images *ImageMap) (string, bool) {
	want := tokenSet(NormalizeTitle(title))
	if len(want) == 0 {
		return "", false
	}
	var (
		best      float64
		bestURL   string
		threshold = m.Threshold
	)
	if threshold <= 0 {
		threshold = 0.6
	}
	images.Each(func(key, url string) bool {
		score := jaccard(want, tokenSet(key))
		if score >= threshold && score > best {
			best, bestURL = score, url
		}
		return best < 1
	})
	return bestURL, bestURL != ""
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// NewMatcher returns the matcher registered under name; unknown names get
// the substring matcher.
func NewMatcher(name string, threshold float64) TitleMatcher {
	if name == "token" {
		return TokenSetMatcher{Threshold: threshold}
	}
	return SubstringMatcher{}
}

package award

import (
	"sort"

	"github.com/sells-group/awards-cli/internal/model"
)

// AttachImages sets Image on each award from its brand's map. Awards whose
// brand has no map get no image. With upstreamFallback, an unmatched award
// keeps the image its feed supplied. It returns the number of matches.
func AttachImages(awards []model.Award, maps map[string]*ImageMap, matcher TitleMatcher, upstreamFallback bool) int {
	matched := 0
	for i := range awards {
		a := &awards[i]
		if url, ok := matcher.Match(a.Title, maps[a.Brand]); ok {
			a.Image = url
			matched++
			continue
		}
		if upstreamFallback && a.UpstreamImage != "" {
			a.Image = a.UpstreamImage
		}
	}
	return matched
}

// SortByFieldDate orders awards by event date, oldest first. Equal dates
// keep their relative order; unparseable dates sort last.
func SortByFieldDate(awards []model.Award) {
	sort.SliceStable(awards, func(i, j int) bool {
		ti, okI := ParseDate(awards[i].FieldDate)
		tj, okJ := ParseDate(awards[j].FieldDate)
		switch {
		case okI && okJ:
			return ti.Before(tj)
		default:
			return okI && !okJ
		}
	})
}

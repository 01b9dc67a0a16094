package award

import "github.com/sells-group/awards-cli/internal/model"

// DedupStats counts records Dedup dropped.
type DedupStats struct {
	MissingField int
	Duplicate    int
}

// Key returns the global dedup key of an award: normalised title and UTC
// calendar date. ok is false when the title is blank or the date is missing
// or unparseable.
func Key(a model.Award) (string, bool) {
	title := NormalizeTitle(a.Title)
	if title == "" {
		return "", false
	}
	day, ok := DateKey(a.FieldDate)
	if !ok {
		return "", false
	}
	return title + "_" + day, true
}

// Dedup keeps the first award seen for each key, in input order. Awards
// without a usable key are skipped and never claim one.
func Dedup(awards []model.Award) ([]model.Award, DedupStats) {
	var stats DedupStats
	seen := make(map[string]struct{}, len(awards))
	out := make([]model.Award, 0, len(awards))
	for _, a := range awards {
		key, ok := Key(a)
		if !ok {
			stats.MissingField++
			continue
		}
		if _, dup := seen[key]; dup {
			stats.Duplicate++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out, stats
}

package model

import "time"

// RunSummary describes one aggregation run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Scope         string        `json:"scope"`
	Brands        int           `json:"brands"`
	BrandsFailed  int           `json:"brands_failed"`
	RawRecords    int           `json:"raw_records"`
	MissingField  int           `json:"missing_field"`
	Duplicates    int           `json:"duplicates"`
	Awards        int           `json:"awards"`
	DatesFound    int           `json:"dates_found"`
	ImageMaps     int           `json:"image_maps"`
	ImagesMatched int           `json:"images_matched"`
	Duration      time.Duration `json:"duration"`
	Err           string        `json:"error,omitempty"`
}

// Failed reports whether the run ended in an error.
func (s RunSummary) Failed() bool { return s.Err != "" }

// BrandFailureRate is the share of brands whose listing could not be read.
func (s RunSummary) BrandFailureRate() float64 {
	if s.Brands == 0 {
		return 0
	}
	return float64(s.BrandsFailed) / float64(s.Brands)
}

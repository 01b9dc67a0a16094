package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawAward is one record from a brand's award listing feed. Feeds are
// inconsistent, so string fields are decoded leniently and may be empty.
type RawAward struct {
	Title     string `json:"title"`
	FieldDate string `json:"field_date"`
	ViewNode  string `json:"view_node"`
	Image     string `json:"image,omitempty"`
}

// UnmarshalJSON accepts strings, numbers, booleans or null for every field.
func (r *RawAward) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Title = looseString(fields["title"])
	r.FieldDate = looseString(fields["field_date"])
	r.ViewNode = looseString(fields["view_node"])
	r.Image = looseString(fields["image"])
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Award is a canonical, deduplicated and enriched award record. StartDate
// and EndDate serialize as null when the nomination window is unknown.
type Award struct {
	ID        string  `json:"id"`
	Brand     string  `json:"brand"`
	Title     string  `json:"title"`
	FieldDate string  `json:"field_date"`
	ViewNode  string  `json:"view_node"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Image     string  `json:"image,omitempty"`

	// UpstreamImage is the feed-provided image, kept off the wire.
	UpstreamImage string `json:"-"`
}

// SubmissionStatus describes where now falls relative to an award's
// nomination window.
type SubmissionStatus string

const (
	SubmissionUnknown   SubmissionStatus = "unknown"
	SubmissionOpensSoon SubmissionStatus = "opens_soon"
	SubmissionOpen      SubmissionStatus = "open"
	SubmissionClosed    SubmissionStatus = "closed"
)

// SubmissionStatus reports the nomination window state at now. An award
// with no parseable window is unknown; one with only a start date stays open
// once started.
func (a Award) SubmissionStatus(now time.Time) SubmissionStatus {
	start, hasStart := parseWindowDate(a.StartDate)
	end, hasEnd := parseWindowDate(a.EndDate)

	switch {
	case !hasStart && !hasEnd:
		return SubmissionUnknown
	case hasStart && now.Before(start):
		return SubmissionOpensSoon
	case hasEnd && !now.Before(end):
		return SubmissionClosed
	default:
		return SubmissionOpen
	}
}

func parseWindowDate(s *string) (time.Time, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

package model

import "strings"

// Brand is a participating site whose awards are aggregated.
type Brand struct {
	ID          string `json:"brand"`
	DisplayName string `json:"name,omitempty"`
	BaseURL     string `json:"url"`
}

// URL joins path onto the brand's base URL without doubling slashes.
func (b Brand) URL(path string) string {
	base := strings.TrimRight(b.BaseURL, "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// BrandIDs returns the IDs of brands in order.
func BrandIDs(brands []Brand) []string {
	ids := make([]string, len(brands))
	for i, b := range brands {
		ids[i] = b.ID
	}
	return ids
}

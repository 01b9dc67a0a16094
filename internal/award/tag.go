package award

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sells-group/awards-cli/internal/model"
)

// IDStrategy selects how awards without a view_node get an ID.
type IDStrategy string

const (
	// IDByIndex uses award-{index} over the flattened listing.
	IDByIndex IDStrategy = "view_node"
	// IDByHash uses a digest of brand, normalised title and date.
	IDByHash IDStrategy = "hash"
)

// TagOptions configures Tag.
type TagOptions struct {
	FallbackBrand string
	IDStrategy    IDStrategy
}

// ResolveBrand returns the ID of the first brand whose normalised base URL
// prefixes the normalised viewNode. Brands are tried in order, so when two
// base URLs share a prefix the earlier brand wins. Unmatched nodes get
// fallback.
func ResolveBrand(viewNode string, brands []model.Brand, fallback string) string {
	node := NormalizeTitle(viewNode)
	if node == "" {
		return fallback
	}
	for _, b := range brands {
		base := NormalizeTitle(b.BaseURL)
		if base != "" && strings.HasPrefix(node, base) {
			return b.ID
		}
	}
	return fallback
}

// Tag attributes every raw record to a brand and assigns its ID. Records are
// kept in input order, including invalid ones; Dedup filters those.
func Tag(raws []model.RawAward, brands []model.Brand, opts TagOptions) []model.Award {
	out := make([]model.Award, len(raws))
	for i, r := range raws {
		brand := ResolveBrand(r.ViewNode, brands, opts.FallbackBrand)
		out[i] = model.Award{
			ID:            awardID(i, brand, r, opts.IDStrategy),
			Brand:         brand,
			Title:         r.Title,
			FieldDate:     r.FieldDate,
			ViewNode:      r.ViewNode,
			UpstreamImage: strings.TrimSpace(r.Image),
		}
	}
	return out
}

func awardID(index int, brand string, r model.RawAward, strategy IDStrategy) string {
	if r.ViewNode != "" {
		return r.ViewNode
	}
	if strategy == IDByHash {
		return HashID(brand, r.Title, r.FieldDate)
	}
	return "award-" + strconv.Itoa(index)
}

// HashID derives a stable ID from brand, normalised title and date.
func HashID(brand, title, fieldDate string) string {
	day, ok := DateKey(fieldDate)
	if !ok {
		day = strings.TrimSpace(fieldDate)
	}
	sum := sha256.Sum256([]byte(brand + "|" + NormalizeTitle(title) + "|" + day))
	return "award-" + hex.EncodeToString(sum[:])[:16]
}

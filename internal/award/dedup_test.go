package award

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
)

func TestDedup_CrossBrandScenario(t *testing.T) {
	t.Parallel()

	brands := []model.Brand{{ID: "x", BaseURL: "https://x.com"}, {ID: "y", BaseURL: "https://y.com"}}
	raws := []model.RawAward{
		{Title: "Best Bank & Trust", FieldDate: "2025-03-01T09:00:00Z", ViewNode: "https://x.com/awards/best-bank"},
		{Title: "best bank and trust", FieldDate: "2025-03-01T23:00:00Z", ViewNode: "https://y.com/a/b"},
	}

	got, stats := Dedup(Tag(raws, brands, TagOptions{FallbackBrand: "sbr"}))
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Brand)
	assert.Equal(t, "Best Bank & Trust", got[0].Title)
	assert.Equal(t, "https://x.com/awards/best-bank", got[0].ViewNode)
	assert.Equal(t, DedupStats{Duplicate: 1}, stats)
}

func TestDedup_FirstWins(t *testing.T) {
	t.Parallel()

	in := []model.Award{
		{ID: "1", Title: "Top  Workplaces", FieldDate: "2025-05-01", ViewNode: "first"},
		{ID: "2", Title: "top workplaces", FieldDate: "2025-05-01T18:00:00Z", ViewNode: "second"},
		{ID: "3", Title: "Top Workplaces", FieldDate: "2025-05-02", ViewNode: "third"},
	}
	got, _ := Dedup(in)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ViewNode)
	assert.Equal(t, "third", got[1].ViewNode)
}

func TestDedup_RequiredFields(t *testing.T) {
	t.Parallel()

	in := []model.Award{
		{ID: "1", Title: "No Date"},
		{ID: "2", Title: "No Date"},
		{ID: "3", Title: "   ", FieldDate: "2025-01-01"},
		{ID: "4", Title: "Bad Date", FieldDate: "someday"},
		{ID: "5", Title: "No Date", FieldDate: "2025-01-01"},
	}
	got, stats := Dedup(in)
	require.Len(t, got, 1)
	assert.Equal(t, "5", got[0].ID, "skipped records never consume a key")
	assert.Equal(t, DedupStats{MissingField: 4}, stats)
}

func TestDedup_Idempotent(t *testing.T) {
	t.Parallel()

	in := []model.Award{
		{ID: "1", Title: "A & B", FieldDate: "2025-01-01"},
		{ID: "2", Title: "a and b", FieldDate: "2025-01-01T12:00:00Z"},
		{ID: "3", Title: "C", FieldDate: "2025-02-01"},
		{ID: "4", Title: "D"},
	}
	once, _ := Dedup(in)
	twice, stats := Dedup(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, DedupStats{}, stats)
}

func TestDedup_EmptyInputIsNonNil(t *testing.T) {
	t.Parallel()

	got, _ := Dedup(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

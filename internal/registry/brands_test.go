package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/store"
)

type stubStore struct {
	data json.RawMessage
	err  error

	collection, document string
}

func (s *stubStore) GetDocument(_ context.Context, collection, document string) (json.RawMessage, error) {
	s.collection, s.document = collection, document
	return s.data, s.err
}

func (s *stubStore) Close() error { return nil }

const brandDoc = `{
  "zeta": {"name": "Zeta Business", "url": "https://zeta.example.com", "awards": true},
  "alpha": {"url": "https://alpha.example.com/", "awards": 1},
  "noawards": {"url": "https://no.example.com", "awards": false},
  "nourl": {"awards": true},
  "blankurl": {"url": "  ", "awards": true},
  "stringflag": {"url": "https://s.example.com", "awards": "false"},
  "objflag": {"url": "https://o.example.com", "awards": {"enabled": false}},
  "scalar": "not an object",
  "numurl": {"url": 42, "awards": true}
}`

func TestParseBrands(t *testing.T) {
	t.Parallel()

	brands, err := ParseBrands(json.RawMessage(brandDoc))
	require.NoError(t, err)
	assert.Equal(t, []model.Brand{
		{ID: "zeta", DisplayName: "Zeta Business", BaseURL: "https://zeta.example.com"},
		{ID: "alpha", BaseURL: "https://alpha.example.com/"},
		{ID: "objflag", BaseURL: "https://o.example.com"},
	}, brands)
}

func TestParseBrands_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `[]`, `"x"`, `{"a": {"url": "u", "awards": true}`, `{"a" 1}`} {
		_, err := ParseBrands(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}

	brands, err := ParseBrands(json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Empty(t, brands)
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]bool{
		`true`: true, `false`: false, `null`: false, `0`: false, `2`: true, `-1`: true,
		`""`: false, `"yes"`: true, `"0"`: false, `"false"`: false, `[]`: true, `{}`: true, ``: false,
	} {
		assert.Equal(t, want, truthy(json.RawMessage(raw)), raw)
	}
}

func TestLoader_AwardBrands(t *testing.T) {
	t.Parallel()

	st := &stubStore{data: json.RawMessage(brandDoc)}
	l := NewLoader(st, "dashboard-config", "brand-all-properties")

	brands, err := l.AwardBrands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "objflag"}, model.BrandIDs(brands))
	assert.Equal(t, "dashboard-config", st.collection)
	assert.Equal(t, "brand-all-properties", st.document)
}

func TestLoader_MissingOrMalformedIsEmpty(t *testing.T) {
	t.Parallel()

	for name, st := range map[string]*stubStore{
		"not found": {err: store.ErrNotFound},
		"malformed": {data: json.RawMessage(`[1,2,3]`)},
	} {
		brands, err := NewLoader(st, "c", "d").AwardBrands(context.Background())
		assert.NoError(t, err, name)
		assert.Empty(t, brands, name)
	}
}

func TestLoader_StoreFailureIsError(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(&stubStore{err: errors.New("connection refused")}, "c", "d").AwardBrands(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLoader_Brand(t *testing.T) {
	t.Parallel()

	l := NewLoader(&stubStore{data: json.RawMessage(brandDoc)}, "c", "d")

	b, err := l.Brand(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "https://alpha.example.com/", b.BaseURL)

	_, err = l.Brand(context.Background(), "noawards")
	assert.True(t, errors.Is(err, ErrBrandNotFound))
	_, err = l.Brand(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrBrandNotFound))
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKey(t *testing.T) {
	data := []byte(`{"speed":40,"items":["a","b"]}`)

	v, err := documentKey(data, "items")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(v))

	_, err = documentKey(data, "nope")
	assert.ErrorContains(t, err, `key "nope" not found`)

	_, err = documentKey([]byte(`[1,2]`), "speed")
	assert.ErrorContains(t, err, "not an object")
}

func runDocumentCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	documentCmd.SetOut(&out)
	documentCmd.SetContext(context.Background())
	t.Cleanup(func() { documentCmd.SetOut(nil) })
	err := documentCmd.RunE(documentCmd, args)
	return out.String(), err
}

func TestDocumentCmd(t *testing.T) {
	useTestConfig(t, writeDocs(t, "http://example.test"))

	out, err := runDocumentCmd(t, "dashboard-config", "tickers")
	require.NoError(t, err)
	assert.JSONEq(t, `{"speed":40,"items":["a","b"]}`, out)
	assert.Contains(t, out, "\n  \"speed\": 40")

	out, err = runDocumentCmd(t, "dashboard-config", "tickers", "speed")
	require.NoError(t, err)
	assert.Equal(t, "40\n", out)

	_, err = runDocumentCmd(t, "dashboard-config", "missing")
	assert.Error(t, err)
}

func TestDocumentImportCmd(t *testing.T) {
	c := useTestConfig(t, "")
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "docs.db")

	src := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(src, []byte("dashboard-config:\n  tickers:\n    speed: 7\n"), 0o600))

	var out bytes.Buffer
	documentImportCmd.SetOut(&out)
	documentImportCmd.SetContext(context.Background())
	t.Cleanup(func() { documentImportCmd.SetOut(nil) })
	require.NoError(t, documentImportCmd.RunE(documentImportCmd, []string{src}))
	assert.Equal(t, "imported 1 documents\n", out.String())

	got, err := runDocumentCmd(t, "dashboard-config", "tickers", "speed")
	require.NoError(t, err)
	assert.Equal(t, "7\n", got)
}

func TestDocumentImportCmd_ReadOnlyStore(t *testing.T) {
	path := writeDocs(t, "http://example.test")
	useTestConfig(t, path)

	documentImportCmd.SetContext(context.Background())
	err := documentImportCmd.RunE(documentImportCmd, []string{path})
	assert.ErrorContains(t, err, "read-only")
}

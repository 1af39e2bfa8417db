package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "search")
	assert.Contains(t, names, "similar")
	assert.Contains(t, names, "render")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = runCommand(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestSimilarRejectsBadEntityID(t *testing.T) {
	_, err := runCommand(t, "similar", "some query", "notanid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an entity ID")
}

func TestRenderRejectsBadEntityID(t *testing.T) {
	_, err := runCommand(t, "render", "42Q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an entity ID")
}

func TestSearchFailsWithoutCredentials(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"ASTRA_DB_APPLICATION_TOKEN", "ASTRA_DB_API_ENDPOINT", "JINA_API_KEY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())

	_, err := runCommand(t, "search", "douglas adams")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASTRA_DB_APPLICATION_TOKEN")
}

func TestRenderUsesConfiguredEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entities": {"Q42": {
			"id": "Q42",
			"labels": {"en": {"language": "en", "value": "Douglas Adams"}},
			"descriptions": {"en": {"language": "en", "value": "English writer"}},
			"aliases": {},
			"claims": {}
		}}}`))
	}))
	defer srv.Close()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	cfg := "wikidata:\n  api_endpoint: " + srv.URL + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".wikivec.yaml"), []byte(cfg), 0o644))
	t.Chdir(dir)

	out, err := runCommand(t, "render", "q42")
	require.NoError(t, err)
	assert.Equal(t, "Douglas Adams, English writer.\n", out)
}

package check

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restwire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCmd_Valid(t *testing.T) {
	path := writeConfig(t, `
clients:
  default:
    timeout: 5s
endpoints:
  feeds:
    endpoint: {scheme: http, host: localhost, port: "8080", path: /api}
    builder: restful
    methods:
      Feed: {verb: GET, path: /:user/feed, params: [{role: path, name: user}]}
      Ping: {path: /ping, returns: text}
`)

	var out bytes.Buffer
	err := (&Cmd{Config: path, Out: &out}).Run()
	require.NoError(t, err)
	assert.Equal(t, "✓ feeds http://localhost:8080/api (restful, 2 methods)\n", out.String())
}

func TestCmd_InvalidEndpoint(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  good:
    endpoint: {scheme: https, host: example.com, path: /}
  bad:
    endpoint: {scheme: ftp, host: example.com, path: /}
`)

	var out bytes.Buffer
	err := (&Cmd{Config: path, Out: &out}).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 endpoints invalid")
	assert.Contains(t, out.String(), "✗ bad: endpoint_validation")
	assert.Contains(t, out.String(), "✓ good https://example.com:80 (basic, 0 methods)")
}

func TestCmd_MissingFile(t *testing.T) {
	err := (&Cmd{Config: filepath.Join(t.TempDir(), "missing.yaml")}).Run()
	assert.ErrorContains(t, err, "read config")
}

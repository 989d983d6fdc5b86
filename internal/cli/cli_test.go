package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, store string, stdin string, args ...string) (string, error) {
	t.Helper()
	c := NewCommand("ebitmap")
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetIn(strings.NewReader(stdin))
	c.SetArgs(append([]string{"--store", store}, args...))
	err := c.ExecuteContext(t.Context())
	return out.String(), err
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadValues(t *testing.T) {
	vals, err := ReadValues(strings.NewReader("1 2\n3\t\t4294967295\n"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 4294967295}, vals)

	_, err = ReadValues(strings.NewReader("1 -2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value 1")

	_, err = ReadValues(strings.NewReader("4294967296"))
	require.Error(t, err)

	vals, err = ReadValues(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestBuildStatsContains(t *testing.T) {
	store := t.TempDir()
	input := writeInput(t, "1 2 2 3\n")

	out, err := run(t, store, "", "build", "--input", input, "--name", "small")
	require.NoError(t, err)
	assert.Contains(t, out, "small: 4 values read, cardinality 3")

	out, err = run(t, store, "", "stats", "small")
	require.NoError(t, err)
	assert.Regexp(t, `cardinality\s+3`, out)
	assert.Regexp(t, `sum_value\s+6`, out)

	out, err = run(t, store, "", "stats", "small", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"cardinality":3`)

	out, err = run(t, store, "", "stats", "small", "-o", "go-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"cardinality": 3`)

	out, err = run(t, store, "", "contains", "small", "2", "5")
	require.NoError(t, err)
	assert.Equal(t, "2\ttrue\n5\tfalse\n", out)
}

func TestBuildFromStdin(t *testing.T) {
	store := t.TempDir()

	_, err := run(t, store, "7 8 9", "--compression", "zstd", "build", "--name", "piped")
	require.NoError(t, err)

	out, err := run(t, store, "", "contains", "piped", "8")
	require.NoError(t, err)
	assert.Equal(t, "8\ttrue\n", out)
}

func TestMergeAndList(t *testing.T) {
	store := t.TempDir()

	_, err := run(t, store, "", "build", "-i", writeInput(t, "1 2 3"), "-n", "a")
	require.NoError(t, err)
	_, err = run(t, store, "", "build", "-i", writeInput(t, "3 4 5"), "-n", "b")
	require.NoError(t, err)

	out, err := run(t, store, "", "merge", "--op", "union", "a", "b", "--name", "u")
	require.NoError(t, err)
	assert.Equal(t, "u: cardinality 5\n", out)

	out, err = run(t, store, "", "merge", "--op", "intersection", "a", "b", "--name", "i")
	require.NoError(t, err)
	assert.Equal(t, "i: cardinality 1\n", out)

	out, err = run(t, store, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\ni\nu\n", out)

	out, err = run(t, store, "", "ls", "-l")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `u\s+5\s+(lz4|none)`, out)

	out, err = run(t, store, "", "delete", "i", "u")
	require.NoError(t, err)
	assert.Equal(t, "i deleted\nu deleted\n", out)

	out, err = run(t, store, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestCommandErrors(t *testing.T) {
	store := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"build without name", []string{"build", "-i", writeInput(t, "1")}},
		{"build bad value", []string{"build", "-i", writeInput(t, "x"), "-n", "x"}},
		{"build missing file", []string{"build", "-i", filepath.Join(store, "nope"), "-n", "x"}},
		{"stats missing snapshot", []string{"stats", "missing"}},
		{"stats bad output", []string{"stats", "x", "-o", "yaml"}},
		{"contains bad value", []string{"contains", "x", "-1"}},
		{"merge bad op", []string{"merge", "--op", "xor", "a", "b", "-n", "c"}},
		{"merge without name", []string{"merge", "a", "b"}},
		{"bad compression", []string{"--compression", "gzip", "list"}},
		{"bad codec", []string{"--codec", "xml", "list"}},
		{"bad log level", []string{"--log-level", "loud", "list"}},
		{"two remotes", []string{"--s3-bucket", "b", "--minio-endpoint", "localhost:9000", "list"}},
		{"minio without bucket", []string{"--minio-endpoint", "localhost:9000", "list"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, store, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestListEmptyStore(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "missing"), "", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

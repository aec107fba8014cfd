package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", "parse", "age > 18 AND dept = 'Sales'")
	require.NoError(t, err)
	assert.Equal(t, "(age > 18 AND dept = \"Sales\")\n", out)

	out, err = run(t, "", "parse", "age > 18 AND dept = 'Sales'", "--optional", "dept")
	require.NoError(t, err)
	assert.Equal(t, "(age > 18 AND dept = \"Sales\"?)\n", out)

	out, err = run(t, "", "parse", "age > 18", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "comparison", "operator": ">", "attribute": "age", "value": 18, "isOptional": false}`, out)

	_, err = run(t, "", "parse", "(age > 18")
	assert.Error(t, err)

	_, err = run(t, "", "parse", "age > 18", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")

	_, err = run(t, "", "parse")
	assert.Error(t, err)
}

func TestCombineCommand(t *testing.T) {
	out, err := run(t, "", "combine", "a > 1", "b > 2", "c > 3")
	require.NoError(t, err)
	assert.Equal(t, "((a > 1 OR b > 2) OR c > 3)\n", out)

	out, err = run(t, "", "combine", "a > 1")
	require.NoError(t, err)
	assert.Equal(t, "a > 1\n", out)

	_, err = run(t, "", "combine", "a > 1", "b ?? 2")
	assert.Error(t, err)
}

func TestEvaluateCommand(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(`{"age": 20}`), 0o600))

	tests := []struct {
		name     string
		stdin    string
		args     []string
		expected string
	}{
		{"match", "", []string{"evaluate", "age > 18", "--data", `{"age": 20}`}, "true\n"},
		{"no match", "", []string{"evaluate", "age > 18", "-d", `{"age": 10}`}, "false\n"},
		{"missing attribute", "", []string{"evaluate", "age > 18 AND dept = 'Sales'", "-d", `{"age": 20}`}, "false\n"},
		{"optional attribute", "", []string{"evaluate", "age > 18 AND dept = 'Sales'", "-d", `{"age": 20}`, "--optional", "dept"}, "true\n"},
		{"data file", "", []string{"evaluate", "age > 18", "--data-file", dataFile}, "true\n"},
		{"stdin", `{"age": 5}`, []string{"evaluate", "age < 18", "--data-file", "-"}, "true\n"},
		{"json output", "", []string{"evaluate", "age > 18", "-d", `{"age": 20}`, "-f", "json"}, "{\"result\":true}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestEvaluateCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no data", []string{"evaluate", "age > 18"}},
		{"both data flags", []string{"evaluate", "age > 18", "-d", "{}", "--data-file", "x.json"}},
		{"invalid json", []string{"evaluate", "age > 18", "-d", "{"}},
		{"not an object", []string{"evaluate", "age > 18", "-d", "[1]"}},
		{"missing file", []string{"evaluate", "age > 18", "--data-file", "/nonexistent.json"}},
		{"bad rule", []string{"evaluate", "age", "-d", "{}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

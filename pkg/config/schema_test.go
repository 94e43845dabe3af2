package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "remark.toml", "[thresholds]\nmax_branch = 6\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid "+path)
	assert.Contains(t, err.Error(), "max_branch")
}

func TestLoad_RejectsWrongType(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"string threshold", "remark.toml", "[thresholds]\nmax_depth = \"deep\"\n"},
		{"negative workers", "remark.yaml", "workers: -1\n"},
		{"unknown format", "remark.json", `{"output": {"format": "xml"}}`},
		{"temperature out of range", "remark.toml", "[commenter]\ntemperature = 3.5\n"},
		{"unknown section", "remark.yaml", "linting:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_SchemaAcceptsEveryFormat(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"remark.toml", "max_file_size = 1048576\n[exclude]\npatterns = [\"*_pb2.py\"]\n[commenter]\ntemperature = 0.7\n"},
		{"remark.yaml", "thresholds:\n  max_lines: 80\nexclude:\n  gitignore: false\n"},
		{"remark.json", `{"cache": {"ttl": 12}, "workers": 4}`},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			assert.NoError(t, err)
		})
	}
}

func TestValidateFile_DefaultsRoundTrip(t *testing.T) {
	data, err := toml.Marshal(DefaultConfig())
	require.NoError(t, err)

	tree, err := toml.LoadBytes(data)
	require.NoError(t, err)
	assert.NoError(t, ValidateFile(tree.ToMap()))
}

func TestSchema(t *testing.T) {
	assert.Contains(t, string(Schema()), `"additionalProperties": false`)
}

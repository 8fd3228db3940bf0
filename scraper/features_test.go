package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureMatrixSupports(t *testing.T) {
	matrix := DefaultFeatureMatrix()

	tests := []struct {
		name     string
		model    string
		path     string
		expected bool
	}{
		{name: "unknown model gets everything", model: "X9999 V9.9", path: ModuleModem, expected: true},
		{name: "wired model skips modem", model: "WR3000S V1.0", path: ModuleModem, expected: false},
		{name: "wired model skips sms", model: "WR3000S V1.0", path: ModuleSMS, expected: false},
		{name: "wired model keeps devices", model: "WR3000S V1.0", path: ModuleDevices, expected: true},
		{name: "field under excluded module", model: "WR3000S V1.0", path: ModuleModem + "|signal", expected: false},
		{name: "prefix must be path-aligned", model: "WR3000S V1.0", path: "modemx", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, matrix.Supports(tt.model, tt.path))
		})
	}
}

func TestLoadFeatureMatrixEmptyPath(t *testing.T) {
	matrix, err := LoadFeatureMatrix("")
	require.NoError(t, err)
	assert.False(t, matrix.Supports("WR3000S V1.0", ModuleModem))
}

func TestLoadFeatureMatrixOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	content := `
"WR3000S V1.0": []
"P5 V1.0":
  - mesh
  - vpn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	matrix, err := LoadFeatureMatrix(path)
	require.NoError(t, err)

	// Per-model entries replace the built-in ones wholesale.
	assert.True(t, matrix.Supports("WR3000S V1.0", ModuleModem))
	assert.False(t, matrix.Supports("P5 V1.0", ModuleMesh))
	assert.False(t, matrix.Supports("P5 V1.0", ModuleVPN))
	assert.True(t, matrix.Supports("P5 V1.0", ModuleModem))
	// Untouched defaults survive the merge.
	assert.True(t, matrix.Supports("anything else", ModuleModem))
}

func TestLoadFeatureMatrixMissingFile(t *testing.T) {
	_, err := LoadFeatureMatrix(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFeatureMatrixBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadFeatureMatrix(path)
	assert.Error(t, err)
}

package scraper

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeatureMatrix maps a hardware model name to the set of feature paths
// it does not support. A path is either a module name ("modem") or a
// module|field pair ("modem|signal"); an entry excludes itself and
// everything under it. Models absent from the matrix fall back to the
// "default" entry, so an unrecognized model gets everything attempted
// while a known limited model skips whole subsystems. That asymmetry is
// deliberate and has been confirmed as the intended policy.
type FeatureMatrix map[string][]string

// DefaultFeatureMatrix reflects the known hardware lineup. The WR3000S
// is a wired-only model with no cellular modem.
func DefaultFeatureMatrix() FeatureMatrix {
	return FeatureMatrix{
		"default": {},
		"WR3000S V1.0": {
			ModuleModem,
			ModuleDataUsage,
			ModuleSMS,
		},
	}
}

// Supports reports whether the given feature path is supported for the
// model. Unknown models use the "default" entry.
func (m FeatureMatrix) Supports(model, path string) bool {
	unsupported, ok := m[model]
	if !ok {
		unsupported = m["default"]
	}
	for _, prefix := range unsupported {
		if path == prefix || strings.HasPrefix(path, prefix+"|") {
			return false
		}
	}
	return true
}

// LoadFeatureMatrix reads a YAML override file and merges it over the
// built-in defaults. Per-model entries replace the default entry for
// that model wholesale.
func LoadFeatureMatrix(path string) (FeatureMatrix, error) {
	matrix := DefaultFeatureMatrix()
	if path == "" {
		return matrix, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feature matrix: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parsing feature matrix: %w", err)
	}

	for model, unsupported := range overrides {
		matrix[model] = unsupported
	}
	return matrix, nil
}

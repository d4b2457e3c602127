package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// PackageJSON is consulted when none of Files exists. Settings live under
// its PackageJSONKey field.
const (
	PackageJSON    = "package.json"
	PackageJSONKey = "vuextract"
)

// readPackageJSON returns the vuextract section of root/package.json, or
// nil when the file or the section is missing.
func readPackageJSON(root string) (*Config, error) {
	path := filepath.Join(root, PackageJSON)
	data, err := os.ReadFile(path) //nolint:gosec // G304: workspace package.json
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	section, ok := pkg[PackageJSONKey]
	if !ok {
		return nil, nil
	}

	var cfg Config
	if err := json.Unmarshal(section, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %s must be an object: %w", path, PackageJSONKey, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Package config loads vuextract project settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Files lists the project config locations relative to the workspace root,
// in lookup order. The first one that exists wins.
var Files = []string{
	filepath.Join(".config", "vuextract.yaml"),
	filepath.Join(".config", "vuextract.yml"),
	"vuextract.config.json",
}

// TypeServer describes an external language server answering hovers.
type TypeServer struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Config holds the settings shared by the language server and the CLI.
type Config struct {
	// Include globs select the documents offered the extract action
	Include []string `json:"include" yaml:"include"`

	// ComponentsDir is where new components go when the client does not
	// name a path. Relative to the workspace root.
	ComponentsDir string `json:"componentsDir" yaml:"componentsDir"`

	DefaultComponentName string `json:"defaultComponentName" yaml:"defaultComponentName"`

	// FallbackType is written for props whose type could not be resolved
	FallbackType string `json:"fallbackType" yaml:"fallbackType"`

	// ScriptLang is "ts" or "js"
	ScriptLang string `json:"scriptLang" yaml:"scriptLang"`

	// ExpressionDialect is "typescript" or "javascript"
	ExpressionDialect string `json:"expressionDialect" yaml:"expressionDialect"`

	TypeServer *TypeServer `json:"typeServer,omitempty" yaml:"typeServer,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Include:              []string{"**/*.vue"},
		DefaultComponentName: "NewComponent",
		FallbackType:         "any",
		ScriptLang:           "ts",
		ExpressionDialect:    "typescript",
	}
}

// Merge returns base with every field overlay sets replacing base's.
func Merge(base, overlay Config) Config {
	out := base
	if len(overlay.Include) > 0 {
		out.Include = overlay.Include
	}
	if overlay.ComponentsDir != "" {
		out.ComponentsDir = overlay.ComponentsDir
	}
	if overlay.DefaultComponentName != "" {
		out.DefaultComponentName = overlay.DefaultComponentName
	}
	if overlay.FallbackType != "" {
		out.FallbackType = overlay.FallbackType
	}
	if overlay.ScriptLang != "" {
		out.ScriptLang = overlay.ScriptLang
	}
	if overlay.ExpressionDialect != "" {
		out.ExpressionDialect = overlay.ExpressionDialect
	}
	if overlay.TypeServer != nil && overlay.TypeServer.Command != "" {
		ts := *overlay.TypeServer
		out.TypeServer = &ts
	}
	return out
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	for _, pattern := range c.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid include pattern %q", pattern)
		}
	}
	switch c.ScriptLang {
	case "", "ts", "js":
	default:
		return fmt.Errorf("unsupported scriptLang %q (want ts or js)", c.ScriptLang)
	}
	switch c.ExpressionDialect {
	case "", "typescript", "javascript":
	default:
		return fmt.Errorf("unsupported expressionDialect %q (want typescript or javascript)", c.ExpressionDialect)
	}
	return nil
}

// Matches reports whether path is selected by the include globs. path is
// matched relative to root when it lies under it.
func (c Config) Matches(root, path string) bool {
	if len(c.Include) == 0 {
		return true
	}
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Find returns the path of the project config file under root, or "" when
// there is none.
func Find(root string) string {
	if root == "" {
		return ""
	}
	for _, name := range Files {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the project config under root, falling back to the
// vuextract field of package.json. Missing config is not an error: the
// result is nil.
func Load(root string) (*Config, error) {
	if root == "" {
		return nil, nil
	}
	if path := Find(root); path != "" {
		return ReadFile(path)
	}
	return readPackageJSON(root)
}

// ReadFile parses one config file, YAML or JSON with comments by extension.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: project config chosen by the workspace owner
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, errors.New("unsupported config format: " + path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve layers the project config under root over the defaults.
func Resolve(root string) (Config, error) {
	cfg := Default()
	project, err := Load(root)
	if err != nil {
		return cfg, err
	}
	if project != nil {
		cfg = Merge(cfg, *project)
	}
	return cfg, nil
}

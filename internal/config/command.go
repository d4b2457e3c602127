package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve resolves the type server command against the workspace root
// and returns the program to run with its arguments. Command may be
//   - an absolute path, used as-is
//   - ~/path, under $HOME
//   - ./path or any path with a separator, relative to root
//   - npm:package[/file], resolved in root/node_modules; without a file the
//     package's bin entry is used
//   - a bare name, preferring root/node_modules/.bin over $PATH
//
// JavaScript files are run with node.
func (t TypeServer) Resolve(root string) (string, []string, error) {
	if t.Command == "" {
		return "", nil, fmt.Errorf("type server has no command")
	}
	path, err := resolveCommand(t.Command, root)
	if err != nil {
		return "", nil, err
	}
	args := append([]string(nil), t.Args...)
	switch filepath.Ext(path) {
	case ".js", ".mjs", ".cjs":
		return "node", append([]string{path}, args...), nil
	}
	return path, args, nil
}

func resolveCommand(command, root string) (string, error) {
	switch {
	case filepath.IsAbs(command):
		return command, nil
	case strings.HasPrefix(command, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, command[2:]), nil
	case strings.HasPrefix(command, "npm:"):
		return resolveNpm(command[len("npm:"):], root)
	case strings.ContainsRune(command, '/') || strings.ContainsRune(command, filepath.Separator):
		return filepath.Join(root, filepath.FromSlash(command)), nil
	}
	if root != "" {
		local := filepath.Join(root, "node_modules", ".bin", command)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}
	return command, nil
}

// resolveNpm resolves package[/file] in root/node_modules
func resolveNpm(spec, root string) (string, error) {
	if spec == "" || strings.HasPrefix(spec, "/") {
		return "", fmt.Errorf("invalid npm command: %q", spec)
	}

	var pkg, file string
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", fmt.Errorf("invalid npm command: %q (scoped packages need @scope/package)", spec)
		}
		pkg = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			file = parts[2]
		}
	} else {
		pkg, file, _ = strings.Cut(spec, "/")
	}

	dir := filepath.Join(root, "node_modules", filepath.FromSlash(pkg))
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("npm package not found: %s (expected at %s)", pkg, dir)
	}
	if file != "" {
		return filepath.Join(dir, filepath.FromSlash(file)), nil
	}
	bin, err := packageBin(dir, pkg)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(bin)), nil
}

// packageBin reads the bin entry of a package. A map of binaries must
// name one after the package, or hold exactly one.
func packageBin(dir, pkg string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, PackageJSON)) //nolint:gosec // G304: installed package metadata
	if err != nil {
		return "", fmt.Errorf("npm package %s: %w", pkg, err)
	}
	var meta struct {
		Bin any `json:"bin"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("npm package %s: %w", pkg, err)
	}

	switch bin := meta.Bin.(type) {
	case string:
		return bin, nil
	case map[string]any:
		name := pkg[strings.LastIndex(pkg, "/")+1:]
		if p, ok := bin[name].(string); ok {
			return p, nil
		}
		if len(bin) == 1 {
			for _, v := range bin {
				if p, ok := v.(string); ok {
					return p, nil
				}
			}
		}
	}
	return "", fmt.Errorf("npm package %s has no single bin entry", pkg)
}

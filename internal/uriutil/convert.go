// Package uriutil converts between file:// URIs and filesystem paths.
package uriutil

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// PathToURI converts a filesystem path to a file:// URI with
// percent-encoded segments. Relative paths are made absolute first;
// Windows drive paths become file:///C:/... and UNC shares file://host/...
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if runtime.GOOS == "windows" && strings.HasPrefix(abs, `\\`) {
		return "file://" + escapeSegments(filepath.ToSlash(strings.TrimPrefix(abs, `\\`)))
	}

	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + escapeSegments(abs)
}

func escapeSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// URIToPath converts a file:// URI to a filesystem path. Anything that does
// not parse as a file URI is handled by stripping the scheme.
func URIToPath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" {
		return fallback(uri)
	}

	if parsed.Host != "" && parsed.Host != "localhost" {
		if runtime.GOOS == "windows" {
			return `\\` + parsed.Host + filepath.FromSlash(parsed.Path)
		}
		return parsed.Host + parsed.Path
	}
	return filepath.FromSlash(trimDriveSlash(parsed.Path))
}

func fallback(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	return filepath.FromSlash(trimDriveSlash(path))
}

// trimDriveSlash turns /C:/proj into C:/proj
func trimDriveSlash(p string) string {
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		return p[1:]
	}
	return p
}

// Sibling returns the URI of name in the same directory as uri.
func Sibling(uri, name string) string {
	return PathToURI(filepath.Join(filepath.Dir(URIToPath(uri)), name))
}

// Package filehost runs extractions directly against files on disk, for
// callers without an editor attached.
package filehost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/uriutil"
)

// Host implements the extract collaborators over the local file system.
// Documents are addressed by file:// URI or plain path.
type Host struct {
	// Path is where the new component is written. Empty cancels the pick.
	Path string

	mu sync.Mutex
}

var (
	_ extract.DocumentSource = (*Host)(nil)
	_ extract.EditApplier    = (*Host)(nil)
	_ extract.FileCreator    = (*Host)(nil)
	_ extract.PathPicker     = (*Host)(nil)
)

func localPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return uriutil.URIToPath(uri)
	}
	return uri
}

// Text reads the document from disk
func (h *Host) Text(_ context.Context, uri string) (string, error) {
	data, err := os.ReadFile(localPath(uri)) //nolint:gosec // G304: the caller names the document
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Replace rewrites r in the document with text
func (h *Host) Replace(_ context.Context, uri string, r extract.CodeRange, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := localPath(uri)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: the caller names the document
	if err != nil {
		return err
	}
	doc := string(data)
	start := position.ByteOffset(doc, r.StartLine, r.StartColumn)
	end := position.ByteOffset(doc, r.EndLine, r.EndColumn)
	if end < start {
		return fmt.Errorf("range %s is inverted", r)
	}
	out := doc[:start] + text + doc[end:]
	return os.WriteFile(path, []byte(out), info.Mode().Perm())
}

// Create writes a new file, failing with extract.ErrFileExists when path
// is taken. Missing parent directories are created.
func (h *Host) Create(_ context.Context, path string, content []byte) error {
	path = localPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G304: path chosen by the caller
	if errors.Is(err, fs.ErrExist) {
		return extract.ErrFileExists
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Pick returns the fixed Path. Relative paths resolve against the
// document's directory. A taken path is refused before anything is edited.
func (h *Host) Pick(_ context.Context, req extract.PickRequest) (string, bool, error) {
	if h.Path == "" {
		return "", false, nil
	}
	path := localPath(h.Path)
	if req.Extension != "" && filepath.Ext(path) != req.Extension {
		return "", false, fmt.Errorf("component path %s must end in %s", path, req.Extension)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(localPath(req.DocumentURI)), path)
	}
	if _, err := os.Stat(path); err == nil {
		return "", false, fmt.Errorf("%s: %w", path, extract.ErrFileExists)
	}
	return path, true, nil
}

// Notify writes the message to the log
func (h *Host) Notify(_ context.Context, message string, severity extract.Severity) {
	switch severity {
	case extract.SeverityError:
		log.Error("%s", message)
	case extract.SeverityWarning:
		log.Warn("%s", message)
	default:
		log.Info("%s", message)
	}
}

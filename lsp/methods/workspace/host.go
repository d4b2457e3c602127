package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bennypowers.dev/vuextract/internal/documents"
	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/uriutil"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const methodApplyEdit = "workspace/applyEdit"

// Wire shapes for workspace/applyEdit. documentChanges mixes resource
// operations with text document edits, so they are spelled out here.
type (
	applyEditParams struct {
		Label string        `json:"label,omitempty"`
		Edit  workspaceEdit `json:"edit"`
	}
	workspaceEdit struct {
		DocumentChanges []any `json:"documentChanges"`
	}
	textDocumentEdit struct {
		TextDocument versionedDocument  `json:"textDocument"`
		Edits        []protocol.TextEdit `json:"edits"`
	}
	versionedDocument struct {
		URI     string `json:"uri"`
		Version *int   `json:"version"`
	}
	createFile struct {
		Kind    string            `json:"kind"`
		URI     string            `json:"uri"`
		Options createFileOptions `json:"options"`
	}
	createFileOptions struct {
		Overwrite      bool `json:"overwrite"`
		IgnoreIfExists bool `json:"ignoreIfExists"`
	}
	applyEditResult struct {
		Applied       bool   `json:"applied"`
		FailureReason string `json:"failureReason,omitempty"`
	}
)

// applyEdit sends edit to the client and reports a rejected edit as an error.
// It blocks on the client's answer, so it must run off the message loop.
func applyEdit(ctx *glsp.Context, label string, changes ...any) error {
	if ctx == nil || ctx.Call == nil {
		return errors.New("no client connection")
	}
	var result applyEditResult
	ctx.Call(methodApplyEdit, applyEditParams{
		Label: label,
		Edit:  workspaceEdit{DocumentChanges: changes},
	}, &result)
	if !result.Applied {
		if result.FailureReason != "" {
			return fmt.Errorf("client rejected edit: %s", result.FailureReason)
		}
		return errors.New("client rejected edit")
	}
	return nil
}

func textEdit(r extract.CodeRange, text string) protocol.TextEdit {
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(r.StartLine), Character: protocol.UInteger(r.StartColumn)},
			End:   protocol.Position{Line: protocol.UInteger(r.EndLine), Character: protocol.UInteger(r.EndColumn)},
		},
		NewText: text,
	}
}

// editApplier replaces document text through the client, pinned to the
// version the server last saw so a concurrent user edit fails the apply.
type editApplier struct {
	docs   *documents.Manager
	client *glsp.Context
}

func (a editApplier) Replace(_ context.Context, uri string, r extract.CodeRange, text string) error {
	_, version, ok := a.docs.Snapshot(uri)
	if !ok {
		return fmt.Errorf("%w: %s", documents.ErrNotOpen, uri)
	}
	return applyEdit(a.client, "Extract component", textDocumentEdit{
		TextDocument: versionedDocument{URI: uri, Version: &version},
		Edits:        []protocol.TextEdit{textEdit(r, text)},
	})
}

// fileCreator asks the client to create the component file and fill it.
type fileCreator struct {
	client *glsp.Context
}

func (c fileCreator) Create(_ context.Context, path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", extract.ErrFileExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	uri := uriutil.PathToURI(path)
	return applyEdit(c.client, "Create component",
		createFile{Kind: "create", URI: uri},
		textDocumentEdit{
			TextDocument: versionedDocument{URI: uri},
			Edits:        []protocol.TextEdit{textEdit(extract.CodeRange{}, string(content))},
		},
	)
}

// pathPicker chooses the component path without prompting: an explicit
// path from the command arguments, else the configured components
// directory, else the directory of the source document.
type pathPicker struct {
	explicit      string
	root          string
	componentsDir string
}

func (p pathPicker) Pick(_ context.Context, req extract.PickRequest) (string, bool, error) {
	if p.explicit != "" {
		path := p.explicit
		if strings.HasPrefix(path, "file://") {
			path = uriutil.URIToPath(path)
		}
		if filepath.Ext(path) != req.Extension {
			return "", false, fmt.Errorf("component path %s must end in %s", path, req.Extension)
		}
		if exists(path) {
			return "", false, fmt.Errorf("%s: %w", path, extract.ErrFileExists)
		}
		return path, true, nil
	}

	dir := filepath.Dir(uriutil.URIToPath(req.DocumentURI))
	switch {
	case p.componentsDir == "":
	case filepath.IsAbs(p.componentsDir):
		dir = p.componentsDir
	case p.root != "":
		dir = filepath.Join(p.root, p.componentsDir)
	}
	return uniquePath(dir, req.Suggested), true, nil
}

// uniquePath returns dir/file, or dir/file2, dir/file3... when taken.
func uniquePath(dir, file string) string {
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	candidate := filepath.Join(dir, file)
	for i := 2; exists(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s%d%s", stem, i, ext))
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type notifier struct {
	client *glsp.Context
}

func (n notifier) Notify(_ context.Context, message string, severity extract.Severity) {
	ShowMessage(n.client, MessageType(severity), message)
}

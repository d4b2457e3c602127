package codeaction

import (
	"strings"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/uriutil"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Title of the extraction code action
const Title = "Extract to new component"

// CodeAction offers to extract the template node starting at the range
// start. Nothing is offered when no node starts exactly there.
func CodeAction(req *types.RequestContext, params *protocol.CodeActionParams) (any, error) {
	uri := params.TextDocument.URI
	if !wants(params.Context.Only, protocol.CodeActionKindRefactorExtract) {
		return nil, nil
	}

	cfg := req.Server.GetConfig()
	if root := req.Server.RootPath(); !cfg.Matches(root, uriutil.URIToPath(uri)) {
		log.Debug("CodeAction: %s is not included", uri)
		return nil, nil
	}

	doc := req.Server.Document(uri)
	if doc == nil {
		return nil, nil
	}

	root, fragment, err := req.Server.Templates().Parse(uri, int32(doc.Version()), doc.Content())
	if err != nil {
		log.Debug("CodeAction: no template in %s: %v", uri, err)
		return nil, nil
	}
	start := position.Position{Line: int(params.Range.Start.Line), Character: int(params.Range.Start.Character)}
	node, ok := extract.FindNodeAtSelectionStart(fragment, root, start)
	if !ok {
		return nil, nil
	}
	log.Debug("CodeAction: %s node at %d:%d in %s", node.Kind, start.Line, start.Character, uri)

	kind := protocol.CodeActionKindRefactorExtract
	return []protocol.CodeAction{{
		Title: Title,
		Kind:  &kind,
		Command: &protocol.Command{
			Title:     Title,
			Command:   types.CommandExtractComponent,
			Arguments: []any{uri, params.Range},
		},
	}}, nil
}

// wants reports whether a client filter admits kind. Kinds are
// hierarchical, so "refactor" admits "refactor.extract".
func wants(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == kind || strings.HasPrefix(string(kind), string(k)+".") {
			return true
		}
	}
	return false
}

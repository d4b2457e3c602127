package textDocument

import (
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DidOpen handles the textDocument/didOpen notification
func DidOpen(req *types.RequestContext, params *protocol.DidOpenTextDocumentParams) error {
	doc := params.TextDocument
	log.Debug("Document opened: %s (language: %s, version: %d)", doc.URI, doc.LanguageID, doc.Version)
	return req.Server.DocumentManager().DidOpen(doc.URI, doc.LanguageID, int(doc.Version), doc.Text)
}

// DidChange handles the textDocument/didChange notification
func DidChange(req *types.RequestContext, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	version := int(params.TextDocument.Version)
	log.Debug("Document changed: %s (version: %d, changes: %d)", uri, version, len(params.ContentChanges))

	changes := make([]protocol.TextDocumentContentChangeEvent, 0, len(params.ContentChanges))
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			changes = append(changes, c)
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, protocol.TextDocumentContentChangeEvent{Text: c.Text})
		}
	}

	req.Server.Templates().Forget(uri)
	return req.Server.DocumentManager().DidChange(uri, version, changes)
}

// DidClose handles the textDocument/didClose notification
func DidClose(req *types.RequestContext, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	log.Debug("Document closed: %s", uri)
	req.Server.Templates().Forget(uri)
	return req.Server.DocumentManager().DidClose(uri)
}

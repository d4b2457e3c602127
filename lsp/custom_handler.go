package lsp

import (
	"encoding/json"
	"fmt"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/lsp/methods/workspace"
	"bennypowers.dev/vuextract/lsp/types"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// MethodInspect previews an extraction without editing anything
const MethodInspect = "vuextract/inspect"

// CustomHandler wraps protocol.Handler to serve methods outside LSP 3.16
type CustomHandler struct {
	*protocol.Handler // Pointer to avoid copying embedded mutex
	server            *Server
}

// InspectParams are the params of vuextract/inspect
type InspectParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position               `json:"position"`
}

// Handle implements glsp.Handler interface
func (h *CustomHandler) Handle(context *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if context.Method == MethodInspect {
		var params InspectParams
		if err := json.Unmarshal(context.Params, &params); err != nil {
			return nil, true, false, err
		}
		result, err := method(h.server, MethodInspect, inspect)(context, &params)
		if err != nil {
			return nil, true, true, err
		}
		return result, true, true, nil
	}

	return h.Handler.Handle(context)
}

func inspect(req *types.RequestContext, params *InspectParams) (*extract.Preview, error) {
	uri := params.TextDocument.URI
	doc := req.Server.Document(uri)
	if doc == nil {
		return nil, fmt.Errorf("document not open: %s", uri)
	}

	ex, err := workspace.NewExtractor(req, "")
	if err != nil {
		return nil, err
	}
	start := position.Position{Line: int(params.Position.Line), Character: int(params.Position.Character)}
	return ex.Preview(doc.Content(), extract.Selection{Start: start, End: start})
}

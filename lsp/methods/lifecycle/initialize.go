package lifecycle

import (
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/uriutil"
	"bennypowers.dev/vuextract/internal/version"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ServerName is reported in serverInfo
const ServerName = "vuextract"

// Initialize handles the LSP initialize request
func Initialize(req *types.RequestContext, params *protocol.InitializeParams) (any, error) {
	clientName := "unknown"
	if params.ClientInfo != nil {
		clientName = params.ClientInfo.Name
	}
	log.Info("Initializing for client: %s", clientName)

	switch {
	case params.RootURI != nil:
		req.Server.SetRootURI(*params.RootURI)
		req.Server.SetRootPath(uriutil.URIToPath(*params.RootURI))
	case params.RootPath != nil:
		req.Server.SetRootPath(*params.RootPath)
		req.Server.SetRootURI(uriutil.PathToURI(*params.RootPath))
	}
	if root := req.Server.RootPath(); root != "" {
		log.Info("Workspace root: %s", root)
	}

	if settings := params.InitializationOptions; settings != nil {
		if err := applySettings(req, settings); err != nil {
			req.AddWarning(err)
		}
	}

	syncKind := protocol.TextDocumentSyncKindIncremental
	v := version.Get()
	capabilities := map[string]any{
		"textDocumentSync": protocol.TextDocumentSyncOptions{
			OpenClose: boolPtr(true),
			Change:    &syncKind,
		},
		"codeActionProvider": map[string]any{
			"codeActionKinds": []protocol.CodeActionKind{protocol.CodeActionKindRefactorExtract},
		},
		"executeCommandProvider": map[string]any{
			"commands": []string{types.CommandExtractComponent, types.CommandInspectType},
		},
	}
	return struct {
		Capabilities any                                  `json:"capabilities"`
		ServerInfo   *protocol.InitializeResultServerInfo `json:"serverInfo,omitempty"`
	}{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &v,
		},
	}, nil
}

// applySettings accepts client settings passed as initializationOptions,
// in the same shape as workspace/didChangeConfiguration.
func applySettings(req *types.RequestContext, options any) error {
	settings, err := types.ParseSettings(options)
	if err != nil {
		return err
	}
	req.Server.SetClientSettings(settings)
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

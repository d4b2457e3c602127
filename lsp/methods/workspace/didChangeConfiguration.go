package workspace

import (
	"fmt"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DidChangeConfiguration handles the workspace/didChangeConfiguration
// notification. Unusable settings are reported and leave the current
// configuration in place.
func DidChangeConfiguration(req *types.RequestContext, params *protocol.DidChangeConfigurationParams) error {
	settings, err := types.ParseSettings(params.Settings)
	if err != nil {
		req.AddWarning(fmt.Errorf("ignoring client settings: %w", err))
		return nil
	}
	req.Server.SetClientSettings(settings)
	log.Info("Configuration changed: %+v", req.Server.GetConfig())
	return nil
}

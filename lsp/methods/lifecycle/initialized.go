package lifecycle

import (
	"fmt"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Initialized stores the client connection, loads the project config and
// starts watching it. Config problems do not fail initialization.
func Initialized(req *types.RequestContext, _ *protocol.InitializedParams) error {
	log.Info("Server initialized")
	req.Server.SetGLSPContext(req.GLSP)

	if err := req.Server.LoadProjectConfig(); err != nil {
		req.AddWarning(fmt.Errorf("failed to load project config: %w", err))
	}
	if err := req.Server.WatchProjectConfig(); err != nil {
		req.AddWarning(fmt.Errorf("failed to watch project config: %w", err))
	}
	return nil
}

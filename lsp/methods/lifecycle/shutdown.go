package lifecycle

import (
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/types"
)

// Shutdown handles the LSP shutdown request. Resources are released by
// Server.Close once the connection ends.
func Shutdown(req *types.RequestContext) error {
	log.Info("Server shutting down")
	return nil
}

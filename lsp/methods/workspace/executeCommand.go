package workspace

import (
	"context"
	"encoding/json"
	"fmt"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
	"bennypowers.dev/vuextract/internal/synth"
	"bennypowers.dev/vuextract/internal/vue/expression"
	"bennypowers.dev/vuextract/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ExecuteCommand handles workspace/executeCommand
func ExecuteCommand(req *types.RequestContext, params *protocol.ExecuteCommandParams) (any, error) {
	switch params.Command {
	case types.CommandExtractComponent:
		return nil, extractComponent(req, params.Arguments)
	case types.CommandInspectType:
		return inspectType(req, params.Arguments)
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

// extractComponent validates the arguments and starts the extraction in
// the background: it calls back into the client with workspace/applyEdit,
// which cannot be answered while this request holds the message loop.
func extractComponent(req *types.RequestContext, args []any) error {
	var (
		uri  string
		span protocol.Range
		path string
	)
	if err := argument(args, 0, &uri); err != nil {
		return err
	}
	if err := argument(args, 1, &span); err != nil {
		return err
	}
	if len(args) > 2 {
		if err := argument(args, 2, &path); err != nil {
			return err
		}
	}

	ex, err := NewExtractor(req, path)
	if err != nil {
		return err
	}
	sel := extract.Selection{
		Start: position.Position{Line: int(span.Start.Line), Character: int(span.Start.Character)},
		End:   position.Position{Line: int(span.End.Line), Character: int(span.End.Character)},
	}

	log.Info("Extracting component from %s at %d:%d", uri, sel.Start.Line, sel.Start.Character)
	req.Server.Go(func() {
		res, err := ex.Run(context.Background(), extract.Request{URI: uri, Selection: sel})
		switch {
		case err != nil:
			log.Warn("Extraction from %s failed: %v", uri, err)
		case res.Cancelled:
			log.Debug("Extraction from %s cancelled", uri)
		}
	})
	return nil
}

// NewExtractor builds an Extractor backed by the client connection of req.
// A non-empty path skips choosing a location.
func NewExtractor(req *types.RequestContext, path string) (*extract.Extractor, error) {
	cfg := req.Server.GetConfig()
	dialect, err := expression.ParseDialect(cfg.ExpressionDialect)
	if err != nil {
		return nil, err
	}
	return &extract.Extractor{
		Documents: req.Server.DocumentManager(),
		Types:     req.Server.TypeOracle(),
		Edits:     editApplier{docs: req.Server.DocumentManager(), client: req.GLSP},
		Files:     fileCreator{client: req.GLSP},
		Paths: pathPicker{
			explicit:      path,
			root:          req.Server.RootPath(),
			componentsDir: cfg.ComponentsDir,
		},
		Notifier:    notifier{client: req.GLSP},
		Parser:      expression.NewParser(dialect),
		Generator:   synth.Generator{FallbackType: cfg.FallbackType, ScriptLang: cfg.ScriptLang},
		DefaultName: cfg.DefaultComponentName,
		Locks:       req.Server.ExtractLocks(),
	}, nil
}

// inspectType returns the type the configured type server reports at a
// document position, or nil.
func inspectType(req *types.RequestContext, args []any) (any, error) {
	var (
		uri string
		pos protocol.Position
	)
	if err := argument(args, 0, &uri); err != nil {
		return nil, err
	}
	if err := argument(args, 1, &pos); err != nil {
		return nil, err
	}
	oracle := req.Server.TypeOracle()
	if oracle == nil {
		req.AddWarning(fmt.Errorf("no type server configured"))
		return nil, nil
	}
	typ := oracle.ResolveType(context.Background(), uri, extract.IdentifierDefinition{
		Line:   int(pos.Line) + 1,
		Column: int(pos.Character) + 1,
	})
	if typ == nil {
		return nil, nil
	}
	return *typ, nil
}

// argument decodes args[i], which arrives as generic JSON, into dst.
func argument(args []any, i int, dst any) error {
	if i >= len(args) {
		return fmt.Errorf("missing argument %d", i)
	}
	data, err := json.Marshal(args[i])
	if err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	return nil
}

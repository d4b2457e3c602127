package typeoracle

import (
	"context"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/internal/position"
)

// HoverService answers hover queries. Each returned string is one content
// block of the hover, usually markdown.
type HoverService interface {
	Hover(ctx context.Context, uri string, pos position.Position) ([]string, error)
}

// HoverOracle resolves identifier types by scraping hover text
type HoverOracle struct {
	Service HoverService
}

var _ extract.TypeOracle = HoverOracle{}

// ResolveType queries the hover service at the identifier and scrapes the
// result. Service errors count as a miss.
func (o HoverOracle) ResolveType(ctx context.Context, uri string, ident extract.IdentifierDefinition) *string {
	if o.Service == nil {
		return nil
	}
	pos := position.Position{Line: ident.Line - 1, Character: ident.Column - 1}
	blocks, err := o.Service.Hover(ctx, uri, pos)
	if err != nil {
		log.Debug("hover for %s at %d:%d failed: %v", ident.Name, pos.Line, pos.Character, err)
		return nil
	}
	if len(blocks) == 0 {
		return nil
	}
	t := ScrapeType(blocks)
	if t == nil {
		log.Debug("no type in hover for %s", ident.Name)
	}
	return t
}

// Static resolves types from a fixed name-to-type table. A nil or empty
// Static resolves nothing, for hosts without a type server.
type Static map[string]string

var _ extract.TypeOracle = Static(nil)

// ResolveType looks up the identifier by name
func (s Static) ResolveType(_ context.Context, _ string, ident extract.IdentifierDefinition) *string {
	t, ok := s[ident.Name]
	if !ok {
		return nil
	}
	return &t
}

package types

import (
	"github.com/tliron/glsp"
)

// RequestContext contains all request-scoped data for an LSP method call.
type RequestContext struct {
	Server   ServerContext
	GLSP     *glsp.Context
	warnings []error
}

// NewRequestContext creates a new request context
func NewRequestContext(server ServerContext, glsp *glsp.Context) *RequestContext {
	return &RequestContext{
		Server: server,
		GLSP:   glsp,
	}
}

// AddWarning records a non-fatal problem. Middleware logs warnings once
// the handler returns.
func (r *RequestContext) AddWarning(err error) {
	if err != nil {
		r.warnings = append(r.warnings, err)
	}
}

// Warnings returns all warnings collected during this request.
func (r *RequestContext) Warnings() []error {
	return r.warnings
}

func (r *RequestContext) HasWarnings() bool {
	return len(r.warnings) > 0
}

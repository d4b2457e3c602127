package lsp

import (
	"fmt"
	"runtime/debug"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/methods/workspace"
	"bennypowers.dev/vuextract/lsp/types"
	"github.com/tliron/glsp"
)

// method wraps a request handler with panic recovery, logging and error
// context. It returns the plain function type protocol.Handler fields use.
func method[P, R any](
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext, P) (R, error),
) func(*glsp.Context, P) (R, error) {
	return func(ctx *glsp.Context, params P) (result R, err error) {
		defer recoverPanic(ctx, methodName, &err)

		log.Debug("%s started", methodName)
		req := types.NewRequestContext(s, ctx)
		result, err = handler(req, params)
		logWarnings(ctx, methodName, req)

		if err != nil {
			workspace.LogError(ctx, "%s: %v", methodName, err)
			var zero R
			return zero, fmt.Errorf("%s: %w", methodName, err)
		}
		log.Debug("%s completed", methodName)
		return result, nil
	}
}

// notify wraps a notification handler
func notify[P any](
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext, P) error,
) func(*glsp.Context, P) error {
	return func(ctx *glsp.Context, params P) (err error) {
		defer recoverPanic(ctx, methodName, &err)

		log.Debug("%s started", methodName)
		req := types.NewRequestContext(s, ctx)
		err = handler(req, params)
		logWarnings(ctx, methodName, req)

		if err != nil {
			workspace.LogError(ctx, "%s: %v", methodName, err)
			return fmt.Errorf("%s: %w", methodName, err)
		}
		log.Debug("%s completed", methodName)
		return nil
	}
}

// noParam wraps a handler that takes no params, like shutdown
func noParam(
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext) error,
) func(*glsp.Context) error {
	return notifyAdapter(notify(s, methodName, func(req *types.RequestContext, _ struct{}) error {
		return handler(req)
	}))
}

func notifyAdapter(fn func(*glsp.Context, struct{}) error) func(*glsp.Context) error {
	return func(ctx *glsp.Context) error {
		return fn(ctx, struct{}{})
	}
}

func recoverPanic(ctx *glsp.Context, methodName string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	log.Error("PANIC in %s: %v\nStack trace:\n%s", methodName, r, debug.Stack())
	workspace.LogError(ctx, "Internal error in %s: %v", methodName, r)
	*err = fmt.Errorf("internal error in %s", methodName)
}

func logWarnings(ctx *glsp.Context, methodName string, req *types.RequestContext) {
	for _, w := range req.Warnings() {
		workspace.LogWarning(ctx, "%s: %v", methodName, w)
	}
}

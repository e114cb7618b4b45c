package logging

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

// contextArgs appends the request id carried by ctx, if any. args is never
// modified in place.
func contextArgs(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	id := middleware.GetReqID(ctx)
	if id == "" {
		return args
	}
	return append(args[:len(args):len(args)], "request_id", id)
}

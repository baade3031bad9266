// Package logging attaches structured request logging to the event bus.
package logging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Cito/graphql-server-core/internal/eventbus"
	"github.com/Cito/graphql-server-core/internal/events"
	"github.com/Cito/graphql-server-core/internal/reqid"
)

// Attach subscribes log writers for HTTP and GraphQL lifecycle events. The
// returned function detaches them again.
func Attach(logger zerolog.Logger) (detach func()) {
	unsubHTTP := eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		logger.Info().
			Str("request_id", rid).
			Str("method", e.Request.Method).
			Str("path", e.Request.URL.Path).
			Int("status", e.Status).
			Dur("duration", e.Duration).
			Msg("http request")
	})

	unsubGQL := eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		rid, _ := reqid.FromContext(ctx)
		evt := logger.Info()
		if len(e.Errors) > 0 {
			evt = logger.Warn()
		}
		evt.
			Str("request_id", rid).
			Str("operation_name", e.OperationName).
			Str("operation_type", e.OperationType).
			Int("errors", len(e.Errors)).
			Dur("duration", e.Duration).
			Msg("graphql operation")
	})

	return func() {
		unsubHTTP()
		unsubGQL()
	}
}

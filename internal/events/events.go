// Package events defines the lifecycle events published on the process
// event bus. Subscribers (logging, tracing) attach to these instead of
// being called directly by the transport.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a request reaches the GraphQL handler.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler has written its response.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is emitted before one operation executes. A batch request
// emits one event per element; OperationID pairs each start with its finish,
// since batch elements run concurrently under a single request ID.
type GraphQLStart struct {
	OperationID   string
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after one operation finishes executing.
type GraphQLFinish struct {
	OperationID   string
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

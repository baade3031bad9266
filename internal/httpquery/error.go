package httpquery

// Error is a protocol-level failure raised before any operation executes.
// It carries the HTTP status the transport adapter should respond with and,
// for method violations, the Allow header value. An Error always aborts the
// whole request; per-operation GraphQL errors are reported inside the
// operation's Outcome instead.
type Error struct {
	Status  int
	Message string
	Headers map[string]string
}

func (e *Error) Error() string { return e.Message }

// Equal reports whether two errors carry the same status, message and
// headers. Used by tests to assert exact protocol failures.
func (e *Error) Equal(o *Error) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Status != o.Status || e.Message != o.Message || len(e.Headers) != len(o.Headers) {
		return false
	}
	for k, v := range e.Headers {
		if o.Headers[k] != v {
			return false
		}
	}
	return true
}

func badRequest(message string) *Error {
	return &Error{Status: 400, Message: message}
}

func methodNotAllowed(message, allow string) *Error {
	return &Error{Status: 405, Message: message, Headers: map[string]string{"Allow": allow}}
}

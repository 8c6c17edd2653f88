package middleware

// contextKey is a private type so the keys cannot collide with other
// packages' context values.
type contextKey string

const (
	// requestIDKey stores the unique request id.
	requestIDKey contextKey = "request_id"
)

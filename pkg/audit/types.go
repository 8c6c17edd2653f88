package audit

import (
	"context"
	"time"
)

// Record is one proxied request's accounting entry.
type Record struct {
	// ID is a generated UUID.
	ID string

	// RequestID correlates the record with the request log lines.
	RequestID string

	// UserID and APIKeyID identify the caller.
	UserID   int64
	APIKeyID int64

	// Model is the virtual model the client asked for; ActualModel is
	// what was sent upstream.
	Model       string
	ActualModel string

	// ChannelID and ChannelName identify the upstream that served the
	// call (zero when selection failed).
	ChannelID   int64
	ChannelName string

	// Format is the client's wire format; Stream records whether the
	// response was streamed.
	Format string
	Stream bool

	// StatusCode is the HTTP status returned to the client.
	StatusCode int

	// ErrorMessage is the classified error text for failed calls.
	ErrorMessage string

	// InputTokens, OutputTokens, and Cost are the billed usage.
	InputTokens  int
	OutputTokens int
	Cost         float64

	// Latency is the total request duration.
	Latency time.Duration

	// CreatedAt is the record timestamp.
	CreatedAt time.Time
}

// Storage persists audit records.
type Storage interface {
	// Store writes one record.
	Store(ctx context.Context, rec *Record) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Record, error)

	// DeleteBefore removes records created before cutoff and returns the
	// number deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the backing database.
	Close() error
}

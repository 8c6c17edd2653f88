package streaming

// StreamContext accumulates per-call state while a stream is being
// transformed. It is created at the first upstream frame, mutated frame
// by frame, handed to the completion callback, and then discarded; it is
// never persisted.
type StreamContext struct {
	// ID is the upstream response id (source prefix intact; emitters
	// re-prefix per target).
	ID string

	// Model is the model name the upstream reported.
	Model string

	// Text is the accumulated output text.
	Text string

	// InputTokens and OutputTokens are the running usage totals.
	// OutputTokens starts as a per-delta estimate and is replaced by the
	// vendor's total when a usage-bearing terminal frame arrives.
	InputTokens  int
	OutputTokens int

	// FinishReason is the unified finish reason once the source reported
	// one.
	FinishReason string

	// vendorOutput records that OutputTokens came from the vendor, not
	// the estimator.
	vendorOutput bool
}

// initialized reports whether enough of the upstream envelope is known
// to emit the target format's framing events.
func (c *StreamContext) initialized() bool {
	return c.ID != "" && c.Model != ""
}

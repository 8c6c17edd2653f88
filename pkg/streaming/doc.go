// Package streaming translates a provider's SSE event stream into the
// client's requested wire format on the fly.
//
// The transformer is a state machine over the upstream "data:" lines.
// For every frame it extracts the source format's id, model, text delta,
// finish reason, and usage, accumulates them in a per-call StreamContext,
// and re-emits the delta in the target format, synthesizing the target's
// framing events (message_start, response.created, the role-only first
// chunk, ...) that the source never sent. When source and target are both
// the Anthropic format, frames pass through unmodified and only the
// bookkeeping runs.
//
// Completion events are flushed exactly once, on the source's terminal
// event, its [DONE] sentinel, or stream end, whichever comes first. The
// completion callback then fires with the final StreamContext so billing
// and audit happen exactly once per call, including aborted streams.
package streaming

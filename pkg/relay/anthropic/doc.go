// Package anthropic implements the Anthropic Messages adapter and the
// converters between the Messages wire format and the unified
// representation.
//
// Anthropic differs from the OpenAI formats in three routing-relevant
// ways: authentication uses the x-api-key header, the system prompt is a
// top-level field rather than a message, and max_tokens is mandatory.
package anthropic

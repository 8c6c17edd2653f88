// Package openai implements the OpenAI Chat Completions adapter and the
// converters between the Chat Completions wire format and the unified
// representation.
package openai

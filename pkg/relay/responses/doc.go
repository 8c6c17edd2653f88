// Package responses implements the OpenAI Responses adapter and the
// converters between the Responses wire format and the unified
// representation.
package responses

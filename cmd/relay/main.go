// Octane Relay is a multi-format LLM API gateway.
//
// It accepts requests in the OpenAI Chat Completions, OpenAI Responses,
// and Anthropic Messages wire formats and proxies them to configured
// upstream channels, providing:
//   - Model groups with weighted, health-aware load balancing
//   - On-the-fly translation between vendor request and stream formats
//   - Token accounting, pricing, and per-key quotas
//   - An asynchronous audit trail with scheduled retention
//
// Usage:
//
//	# Start the relay with default configuration
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /path/to/relay.yaml
//
//	# Validate a configuration file
//	relay validate --config /path/to/relay.yaml
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}

// Package handlers provides the HTTP handlers for the relay endpoints
// and the operational probes.
package handlers

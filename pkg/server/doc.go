// Package server assembles the relay from its configuration and runs
// the HTTP listener with graceful shutdown.
package server

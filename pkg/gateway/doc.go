// Package gateway orchestrates one proxied request end to end: parse the
// client's wire format, authenticate, enforce quota and rate limits,
// select a channel, dispatch to the channel's adapter, translate the
// response (buffered or streaming) back into the client's format, and
// account usage, cost, and audit exactly once.
package gateway

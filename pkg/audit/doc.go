// Package audit persists one record per proxied request for billing and
// troubleshooting. Writes are asynchronous and best-effort: a full queue
// drops the record rather than slowing the request path, and a storage
// failure never alters the client response. Retention is enforced by a
// cron-scheduled pruner.
package audit

// Package store provides persistent storage for gateway configuration:
// upstream channels, virtual-model groups, group memberships, API keys,
// and model pricing.
//
// The SQLite backend is the only implementation; the Store interface exists
// so the routing and auth layers can be tested against fakes. Group and
// channel rows are owned by the administrative layer; the request path only
// ever reads them (plus the used-quota counter, which it increments).
//
// Deleting a channel cascades to its group memberships via foreign keys, so
// a resolved group never references a deleted channel after the resolver
// cache expires or is invalidated.
package store

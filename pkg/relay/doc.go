// Package relay defines the provider-agnostic intermediate representation
// used throughout the gateway, the error taxonomy, and the adapter contract
// that vendor-specific subpackages implement.
//
// Every inbound wire format is converted into a UnifiedRequest at the
// handler boundary and every upstream reply is converted back out of a
// UnifiedResponse. No vendor-specific field crosses the adapter boundary
// in either direction; the converters are total over the unified shape and
// silently drop fields the other side cannot express.
//
// Adapters are registered in a Registry keyed by channel type, built once
// at startup. Adding a vendor means one adapter implementation and one
// registry entry; call sites never branch on the vendor.
package relay

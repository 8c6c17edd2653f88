// Package health tracks per-channel failure state for routing decisions.
//
// Each channel has a consecutive-error counter. Once the counter reaches the
// configured threshold the channel is marked unhealthy and excluded from
// selection. An unhealthy channel becomes eligible again after the recovery
// window elapses; the transition is time-based (half-open), no probe request
// is sent.
//
// State lives in the shared cache with a short TTL so that multiple gateway
// instances converge on the same view. A one-second process-local micro-cache
// bounds lookup cost on the hot path; every recorded success or error
// invalidates the micro-cache entry for that channel.
//
// Health writes are read-modify-write and tolerate races under the remote
// cache backend: the worst case is a slightly delayed unhealthy transition.
package health

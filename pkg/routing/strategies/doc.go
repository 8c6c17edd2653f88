// Package strategies implements the load-balancing strategies used by the
// channel selector: round-robin, random, weighted, and priority failover.
//
// All strategies are pure selection functions over a non-empty candidate
// list. The only shared state is the round-robin counter, which lives in
// the gateway cache keyed by group id so that multiple instances advance
// the same sequence. Under the remote cache backend the counter increment
// is read-modify-write and concurrent selections can briefly violate strict
// rotation order; this drift is accepted.
package strategies

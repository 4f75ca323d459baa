// Package guard holds small in-process protections in front of the command
// surface: a sliding-window rate limiter (chat flooding) and an in-flight
// guard (duplicate settlement declarations). Durable idempotency lives in
// the ledger; these only shed obviously-duplicate work early.
package guard

// GuardResult is the outcome of a guard check.
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}

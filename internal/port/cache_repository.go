package port

import "context"

// IdempotencyStore deduplicates batch submissions ahead of the engine. The
// engine itself is not idempotent; callers that need exactly-once submission
// pass a request ID through the gateway and this gate rejects repeats.
type IdempotencyStore interface {
	// SetIdempotency marks a request key, returns false if already seen.
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency releases a key whose batch aborted retryably, so the
	// caller can resubmit under the same request ID.
	ClearIdempotency(ctx context.Context, key string) error
}

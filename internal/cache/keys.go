package cache

import (
	"fmt"
)

// RateLimitKey scopes a fixed-window counter to one endpoint, one requester
// and one window bucket.
func RateLimitKey(scope, fingerprint string, bucket int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, fingerprint, bucket)
}

// InterpretationKey holds a cached AI interpretation keyed by a digest of the
// calculation outcome.
func InterpretationKey(digest string) string {
	return fmt.Sprintf("ai_interpretation:%s", digest)
}

// LockKey names a short-lived mutual exclusion lock.
func LockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

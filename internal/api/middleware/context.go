package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const fingerprintKey contextKey = "requester_fingerprint"

// SetFingerprint stores the requester fingerprint on ctx.
func SetFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, fingerprintKey, fp)
}

// GetFingerprint returns the fingerprint set by the Fingerprint middleware.
func GetFingerprint(r *http.Request) (string, bool) {
	fp, ok := r.Context().Value(fingerprintKey).(string)
	return fp, ok && fp != ""
}

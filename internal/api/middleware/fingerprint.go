package middleware

import (
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies requesters by a keyed BLAKE2b-256 hash of their
// client address. The raw address never leaves this middleware.
type Fingerprint struct {
	key []byte
}

// NewFingerprint creates the middleware. Keys longer than BLAKE2b allows
// are hashed down first; an empty key produces an unkeyed hash.
func NewFingerprint(key string) *Fingerprint {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum256(k)
		k = sum[:]
	}
	return &Fingerprint{key: k}
}

// Hash returns the hex fingerprint of addr.
func (f *Fingerprint) Hash(addr string) string {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// Only reachable with an oversized key, which NewFingerprint prevents.
		panic(err)
	}
	h.Write([]byte(addr))
	return hex.EncodeToString(h.Sum(nil))
}

// Identify sets the requester fingerprint on the request context.
func (f *Fingerprint) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(SetFingerprint(r.Context(), f.Hash(ClientIP(r)))))
	})
}

// ClientIP returns the first X-Forwarded-For entry, else X-Real-IP, else the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package cache provides the response cache for generated chat answers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// ResponseCache maps a prompt fingerprint to a previously generated answer.
type ResponseCache interface {
	// Get returns the cached response, or ok=false if the key was never
	// set or its entry has expired.
	Get(ctx context.Context, key string) (response string, ok bool)
	// Set inserts or overwrites the response for key.
	Set(ctx context.Context, key, response string)
}

// Fingerprint derives the cache key from the raw user message and the
// serialized retrieval context. A hit therefore requires both identical
// message text and identical retrieval results: any dataset change shifts
// the context and invalidates all keys implicitly.
func Fingerprint(message, context string) string {
	h := sha256.New()
	h.Write([]byte(message))
	h.Write([]byte{0})
	h.Write([]byte(context))
	return hex.EncodeToString(h.Sum(nil))
}

package pipeline

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"procure/api/internal/blob"
)

// Verification is the outcome of a tamper check. A digest mismatch is a
// normal result, not an error; Err is set only when the stored bytes
// could not be fetched at all.
type Verification struct {
	IsValid       bool
	CurrentDigest string
	Err           error
}

// Verifier recomputes artifact digests against the persisted ones. Fetches
// go through a circuit breaker so a down blob store fails fast instead of
// tying up request handlers.
type Verifier struct {
	store blob.Store
	cb    *gobreaker.CircuitBreaker
}

func NewVerifier(store blob.Store) *Verifier {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "blob-fetch",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Verifier{store: store, cb: cb}
}

// Verify fetches the bytes currently stored at url, recomputes the digest
// and compares it to expectedDigest. It detects post-hoc replacement of
// the artifact; whether the original render was faithful is anchored at
// generation time and outside what this check can see.
func (v *Verifier) Verify(ctx context.Context, url, expectedDigest string) Verification {
	result, err := v.cb.Execute(func() (interface{}, error) {
		return v.store.Fetch(ctx, url)
	})
	if err != nil {
		return Verification{Err: err}
	}

	current := Digest(result.([]byte))
	return Verification{
		IsValid:       current == expectedDigest,
		CurrentDigest: current,
	}
}

package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// maxPasswordBytes is the longest input bcrypt consumes; longer passwords are
// truncated so they hash the same as their first 72 bytes.
const maxPasswordBytes = 72

// Hasher hashes and verifies passwords with bcrypt. Calls run under a
// weighted semaphore so concurrent hashing never exceeds the worker limit.
type Hasher struct {
	cost    int
	workers *semaphore.Weighted
}

// NewHasher creates a hasher with the given bcrypt cost and worker limit.
func NewHasher(cost, workers int) *Hasher {
	if workers < 1 {
		workers = 1
	}
	return &Hasher{
		cost:    cost,
		workers: semaphore.NewWeighted(int64(workers)),
	}
}

// Hash returns the bcrypt digest of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.workers.Release(1)

	digest, err := bcrypt.GenerateFromPassword(truncate(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest or a
// cancelled context yields false.
func (h *Hasher) Verify(ctx context.Context, password, digest string) bool {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.workers.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), truncate(password)) == nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

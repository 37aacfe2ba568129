// Package idempotency defines the X-Idempotency-Key store shared by the storage backends.
package idempotency

import (
	"context"
	"time"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may sit before another request reclaims it.
const StaleAfter = time.Minute

// Replay is the cached HTTP response for replay.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns:
	//   - (nil, nil) if the key was acquired
	//   - (replay, nil) if the operation already completed (success or failed)
	//   - (nil, error) if the key is in flight or reused for a different request
	AcquireKey(ctx context.Context, key, operatorID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores the success response for replay.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores the error response for replay.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// ReleaseKey drops a pending key after a server-side failure so a retry can reuse it.
	ReleaseKey(ctx context.Context, key string) error

	// CleanupExpired removes expired keys and returns how many were deleted.
	CleanupExpired(ctx context.Context) (int64, error)
}

// NormalizeStatus defaults a missing stored status to 200.
func NormalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

// NormalizeContentType defaults a missing stored content type to JSON.
func NormalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}

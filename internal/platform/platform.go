package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client executes moderation actions against the chat platform. The engine
// only ever talks to the platform through this interface.
type Client interface {
	ExecuteBan(ctx context.Context, guildID, userID, reason string) error
	ExecuteUnban(ctx context.Context, guildID, userID string) error
	FetchBanList(ctx context.Context, guildID string) ([]string, error)
}

// Permanent failures. The dispatcher records these and never retries.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrGuildNotFound    = errors.New("guild not found")
	ErrUserNotFound     = errors.New("user or ban not found")
)

// RateLimitedError asks the caller to re-schedule after RetryAfter
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransientError wraps failures worth retrying (network errors, 5xx)
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient platform error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsPermanent reports whether an execution error must not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrGuildNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute

	loginKeyPrefix = "rl:login:"
)

var ErrTooManyAttempts = errors.New("too many login attempts")

// LoginLimiter counts failed logins per source address. Once MaxAttempts
// failures accumulate inside the window, Check refuses until it expires.
type LoginLimiter struct {
	store       Store
	maxAttempts int64
	window      time.Duration
}

func NewLoginLimiter(store Store, maxAttempts int, window time.Duration) *LoginLimiter {
	if store == nil {
		store = NewMemoryStore()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &LoginLimiter{store: store, maxAttempts: int64(maxAttempts), window: window}
}

func loginKey(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		source = "unknown"
	}
	return loginKeyPrefix + source
}

// Check returns ErrTooManyAttempts when source is locked out.
func (l *LoginLimiter) Check(ctx context.Context, source string) error {
	count, err := l.store.Count(ctx, loginKey(source))
	if err != nil {
		return err
	}
	if count >= l.maxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

// Fail records a failed attempt and returns how many attempts remain.
func (l *LoginLimiter) Fail(ctx context.Context, source string) (int64, error) {
	count, err := l.store.IncrWithTTL(ctx, loginKey(source), l.window)
	if err != nil {
		return 0, err
	}
	remaining := l.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Succeed clears the counter for source.
func (l *LoginLimiter) Succeed(ctx context.Context, source string) error {
	return l.store.Reset(ctx, loginKey(source))
}

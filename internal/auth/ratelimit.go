package auth

import (
	"sync"
	"time"
)

// LoginLimiter throttles failed logins per client IP and username. After
// MaxAttempts failures inside Window the pair is locked out for Lockout.
// Expired records are pruned as failures are recorded.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord

	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// NewLoginLimiter returns nil when maxAttempts is not positive, which
// disables throttling. A nil *LoginLimiter allows everything.
func NewLoginLimiter(maxAttempts int, window, lockout time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if lockout <= 0 {
		lockout = window
	}
	return &LoginLimiter{
		attempts:    make(map[string]*attemptRecord),
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
		now:         time.Now,
	}
}

func limiterKey(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed and, if not, how long
// until it may.
func (l *LoginLimiter) Allow(ip, username string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.attempts[limiterKey(ip, username)]
	if !ok {
		return true, 0
	}
	now := l.now()
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lockout.
func (l *LoginLimiter) RecordFailure(ip, username string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	key := limiterKey(ip, username)
	record, ok := l.attempts[key]
	if !ok || now.Sub(record.firstAttempt) > l.window {
		record = &attemptRecord{firstAttempt: now}
		l.attempts[key] = record
	}

	record.count++
	if record.count >= l.maxAttempts {
		record.lockedUntil = now.Add(l.lockout)
		record.count = 0
		record.firstAttempt = now
		return true
	}
	return false
}

// RecordSuccess forgets earlier failures for the pair.
func (l *LoginLimiter) RecordSuccess(ip, username string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.attempts, limiterKey(ip, username))
	l.mu.Unlock()
}

// prune drops records whose window and lockout have both passed. Callers
// hold l.mu.
func (l *LoginLimiter) prune(now time.Time) {
	for key, record := range l.attempts {
		if now.Sub(record.firstAttempt) > l.window && !now.Before(record.lockedUntil) {
			delete(l.attempts, key)
		}
	}
}

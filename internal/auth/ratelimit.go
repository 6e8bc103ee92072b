package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/library-manager/internal/config"
	"github.com/mrlokans/library-manager/internal/entities"
)

// clientBudgetFactor scales the per-account budget into the budget a single
// client gets across every identifier it tries.
const clientBudgetFactor = 4

// LoginAttempt is what the login form submits, as the limiter sees it.
type LoginAttempt struct {
	ClientIP   string
	Role       entities.UserRole
	Identifier string
}

// accountKey scopes the lookup Authenticate performs for this attempt, the
// role plus the folded identifier, to the submitting client.
func (a LoginAttempt) accountKey() string {
	return "acct|" + a.ClientIP + "|" + string(a.Role) + "|" + normalizeIdentifier(a.Identifier)
}

func (a LoginAttempt) clientKey() string {
	return "ip|" + a.ClientIP
}

// normalizeIdentifier folds a login id or email the way account lookups do.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// LimiterConfig sets the failure budgets of a LoginLimiter.
type LimiterConfig struct {
	MaxAttempts     int           // failures per account from one client (default: 5)
	MaxPerClient    int           // failures from one client across accounts (default: 4x MaxAttempts)
	Window          time.Duration // counting window (default: 15m)
	Lockout         time.Duration // block after a budget is spent (default: 30m)
	CleanupInterval time.Duration // expired bucket sweep (default: 5m)
}

// LimiterConfigFrom maps the auth settings onto limiter budgets.
func LimiterConfigFrom(cfg config.Auth) LimiterConfig {
	return LimiterConfig{
		MaxAttempts: cfg.MaxLoginAttempts,
		Window:      cfg.RateLimitWindow,
		Lockout:     cfg.LockoutDuration,
	}
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.MaxPerClient <= 0 {
		c.MaxPerClient = c.MaxAttempts * clientBudgetFactor
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.Lockout <= 0 {
		c.Lockout = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// LoginLimiter throttles failed logins before they reach the database.
// Unknown identifiers count too, which the per-user lockout in Service
// cannot see.
type LoginLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*failureWindow
	cfg      LimiterConfig
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type failureWindow struct {
	count       int
	opened      time.Time
	lockedUntil time.Time
}

// NewLoginLimiter starts a limiter and its background sweep.
func NewLoginLimiter(cfg LimiterConfig) *LoginLimiter {
	l := &LoginLimiter{
		buckets: make(map[string]*failureWindow),
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Stop ends the background sweep. Safe to call more than once.
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Check reports whether the attempt may proceed and, if not, how long the
// client should wait.
func (l *LoginLimiter) Check(a LoginAttempt) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range []string{a.clientKey(), a.accountKey()} {
		if wait := l.blockedFor(key, now); wait > 0 {
			return false, wait
		}
	}
	return true, 0
}

// Fail counts a failed attempt against both budgets. It reports whether
// either budget is now spent.
func (l *LoginLimiter) Fail(a LoginAttempt) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	lockedAcct := l.count(a.accountKey(), l.cfg.MaxAttempts, now)
	lockedClient := l.count(a.clientKey(), l.cfg.MaxPerClient, now)
	if lockedAcct || lockedClient {
		return true, l.cfg.Lockout
	}
	return false, 0
}

// Succeed forgets the account's failures. The client budget keeps counting
// so one valid account cannot be used to reset a spraying run.
func (l *LoginLimiter) Succeed(a LoginAttempt) {
	l.mu.Lock()
	delete(l.buckets, a.accountKey())
	l.mu.Unlock()
}

func (l *LoginLimiter) blockedFor(key string, now time.Time) time.Duration {
	w, ok := l.buckets[key]
	if !ok || !now.Before(w.lockedUntil) {
		return 0
	}
	return w.lockedUntil.Sub(now)
}

func (l *LoginLimiter) count(key string, limit int, now time.Time) bool {
	w, ok := l.buckets[key]
	if !ok || now.Sub(w.opened) > l.cfg.Window {
		w = &failureWindow{opened: now}
		l.buckets[key] = w
	}
	w.count++
	if w.count >= limit {
		w.lockedUntil = now.Add(l.cfg.Lockout)
		return true
	}
	return false
}

func (l *LoginLimiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets whose window and lockout have both passed.
func (l *LoginLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.buckets {
		if now.Sub(w.opened) > l.cfg.Window && !now.Before(w.lockedUntil) {
			delete(l.buckets, key)
		}
	}
}

package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeChainLocked, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeChainLocked, "lock not held by this owner")
)

// LockOption tunes a Mutex.
type LockOption func(*lockConfig)

// WithLockTTL sets the key expiry.  Without a watchdog a holder that runs
// longer than ttl loses the lock.
func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

// WithRetryCount bounds acquisition attempts.
func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdog keeps extending the lock while it is held.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

func newLockConfig(opts []LockOption) lockConfig {
	cfg := lockConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 300,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.watchdogInterval == 0 {
		cfg.watchdogInterval = cfg.ttl / 3
	}
	return cfg
}

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Mutex is a single-owner lock on one key, released only by the token that
// acquired it.
type Mutex struct {
	client *Client
	key    string
	token  string
	config lockConfig
	logger logging.Logger

	mu             sync.Mutex
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// NewMutex returns an unlocked mutex over name.
func NewMutex(client *Client, name string, log logging.Logger, opts ...LockOption) *Mutex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Mutex{
		client: client,
		key:    client.Key("lock", name),
		token:  uuid.NewString(),
		config: newLockConfig(opts),
		logger: log,
	}
}

// Lock retries until the key is set, the attempts run out, or ctx ends.
func (m *Mutex) Lock(ctx context.Context) error {
	for i := 0; i < m.config.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeChainLocked, "waiting for lock").WithDetail(m.key)
			}
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeChainLocked, "waiting for lock").WithDetail(m.key)
		case <-time.After(m.config.retryDelay):
		}
	}
	return ErrLockNotAcquired.WithDetail(m.key)
}

// TryLock makes one acquisition attempt.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	if m.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := m.client.Underlying().SetNX(ctx, m.key, m.token, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock key")
	}
	if ok && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return ok, nil
}

// Unlock deletes the key if this mutex still owns it.
func (m *Mutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := unlockScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld.WithDetail(m.key)
	}
	return nil
}

// Extend resets the expiry if this mutex still owns the key.
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// TTL reports the remaining expiry of the key.
func (m *Mutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.client.Underlying().PTTL(ctx, m.key).Result()
}

func (m *Mutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchdogCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go runWatchdog(ctx, m.Extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *Mutex) stopWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchdogCancel != nil {
		m.watchdogCancel()
		<-m.watchdogDone
		m.watchdogCancel = nil
	}
}

func runWatchdog(ctx context.Context, extend func(context.Context, time.Duration) (bool, error), interval, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extend(ctx, ttl)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("lock watchdog failed to extend", logging.Err(err))
				}
				return
			}
			if !ok {
				log.Warn("lock watchdog lost the lock")
				return
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain locker
// ─────────────────────────────────────────────────────────────────────────────

// ChainLocker serialises chain writers across worker processes with one
// Mutex per chain.  Its Lock signature matches the chain manager's port.
type ChainLocker struct {
	client *Client
	opts   []LockOption
	logger logging.Logger
}

// NewChainLocker returns a distributed chain locker.  The watchdog is on by
// default so long extractions keep their lock.
func NewChainLocker(client *Client, log logging.Logger, opts ...LockOption) *ChainLocker {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ChainLocker{
		client: client,
		opts:   append([]LockOption{WithWatchdog(true)}, opts...),
		logger: log.Named("chain_lock"),
	}
}

// Lock acquires the chain's mutex and returns its release function.
func (l *ChainLocker) Lock(ctx context.Context, chainID string) (func(), error) {
	m := NewMutex(l.client, "chain:"+chainID, l.logger, l.opts...)
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release on a fresh context: the caller's may already be done.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Unlock(ctx); err != nil {
				l.logger.Warn("chain lock release failed",
					append(logging.ErrorFields(err), logging.String(logging.FieldChainID, chainID))...)
			}
		})
	}, nil
}

//Personal.AI order the ending

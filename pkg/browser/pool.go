package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Acquire after the pool has been closed.
var ErrPoolClosed = errors.New("browser pool is closed")

// SessionFactory creates sessions on demand. Manager.NewSession is the
// usual implementation.
type SessionFactory func(ctx context.Context) (*Session, error)

// PoolConfig bounds the session pool.
type PoolConfig struct {
	// MinSize is the number of sessions kept alive through idle sweeps.
	MinSize int

	// MaxSize caps concurrently held sessions. Acquire blocks once the
	// cap is reached.
	MaxSize int

	// IdleTTL is how long a released session may sit idle before the
	// janitor closes it.
	IdleTTL time.Duration

	// SweepInterval is how often the janitor looks for expired idle
	// sessions.
	SweepInterval time.Duration
}

// DefaultPoolConfig mirrors the browser config section defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinSize:       1,
		MaxSize:       5,
		IdleTTL:       5 * time.Minute,
		SweepInterval: 30 * time.Second,
	}
}

func (c *PoolConfig) applyDefaults() {
	if c.MinSize <= 0 {
		c.MinSize = 1
	}
	if c.MaxSize < c.MinSize {
		c.MaxSize = c.MinSize
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	Open    int // sessions currently alive (idle plus in use)
	Idle    int
	InUse   int
	Created int // sessions created over the pool's lifetime
	Closed  int // sessions closed over the pool's lifetime
}

type pooledSession struct {
	session *Session
	idleAt  time.Time
}

// Pool is a bounded session pool. Acquire hands out an idle session or
// creates one, blocking when MaxSize sessions are already in use. A
// janitor goroutine closes idle sessions above MinSize once their TTL
// expires.
type Pool struct {
	cfg     PoolConfig
	factory SessionFactory

	tokens chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	idle        []pooledSession
	live        int
	created     int
	closedCount int
	closed      bool
}

// NewPool creates a session pool and starts its janitor.
func NewPool(cfg PoolConfig, factory SessionFactory) (*Pool, error) {
	if factory == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	cfg.applyDefaults()

	p := &Pool{
		cfg:     cfg,
		factory: factory,
		tokens:  make(chan struct{}, cfg.MaxSize),
		done:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.janitor()
	return p, nil
}

// Warm pre-creates sessions up to the configured minimum so the first
// acquisitions do not pay the launch cost.
func (p *Pool) Warm(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return ErrPoolClosed
		}
		if p.live >= p.cfg.MinSize {
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		session, err := p.factory(ctx)
		if err != nil {
			return fmt.Errorf("failed to warm pool: %w", err)
		}

		p.mu.Lock()
		p.live++
		p.created++
		p.idle = append(p.idle, pooledSession{session: session, idleAt: time.Now()})
		p.mu.Unlock()
	}
}

// Acquire returns a session for exclusive use. It blocks until a slot
// is free, the context is done, or the pool is closed. The session must
// be returned with Release or Discard.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case p.tokens <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.tokens
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		// Reuse the most recently released session so stale ones age
		// out through the janitor.
		entry := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return entry.session, nil
	}
	p.mu.Unlock()

	session, err := p.factory(ctx)
	if err != nil {
		<-p.tokens
		return nil, err
	}

	p.mu.Lock()
	p.live++
	p.created++
	p.mu.Unlock()
	return session, nil
}

// Release returns a session to the idle list. After Close it closes the
// session instead.
func (p *Pool) Release(session *Session) {
	if session == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.live--
		p.closedCount++
		p.mu.Unlock()
		session.Close()
		<-p.tokens
		return
	}
	p.idle = append(p.idle, pooledSession{session: session, idleAt: time.Now()})
	p.mu.Unlock()
	<-p.tokens
}

// Discard closes a session instead of returning it to the pool. Use it
// when the session is in an unknown state.
func (p *Pool) Discard(session *Session) {
	if session == nil {
		return
	}

	session.Close()
	p.mu.Lock()
	p.live--
	p.closedCount++
	p.mu.Unlock()
	<-p.tokens
}

// WithSession runs fn with a pooled session. The session is released on
// success and discarded on error, so a failure cannot poison the pool.
func (p *Pool) WithSession(ctx context.Context, fn func(*Session) error) error {
	session, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	if err := fn(session); err != nil {
		p.Discard(session)
		return err
	}
	p.Release(session)
	return nil
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Open:    p.live,
		Idle:    len(p.idle),
		InUse:   p.live - len(p.idle),
		Created: p.created,
		Closed:  p.closedCount,
	}
}

// Close stops the janitor and closes all idle sessions. Sessions still
// in use are closed when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	p.closedCount += len(idle)
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()

	for _, entry := range idle {
		entry.session.Close()
	}
	return nil
}

func (p *Pool) janitor() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			p.sweep(now)
		}
	}
}

// sweep closes idle sessions whose TTL has expired as of now, keeping
// at least MinSize sessions alive.
func (p *Pool) sweep(now time.Time) {
	p.mu.Lock()
	var expired []*Session
	kept := p.idle[:0]
	for _, entry := range p.idle {
		if now.Sub(entry.idleAt) > p.cfg.IdleTTL && p.live-len(expired) > p.cfg.MinSize {
			expired = append(expired, entry.session)
			continue
		}
		kept = append(kept, entry)
	}
	p.idle = kept
	p.live -= len(expired)
	p.closedCount += len(expired)
	p.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
}

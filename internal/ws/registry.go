package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"voting-system/internal/metrics"
)

// Conn is a single subscribed client connection. Implementations must be
// safe for concurrent writes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type Pool string

const (
	PoolVoter   Pool = "voter"
	PoolDisplay Pool = "display"
)

var (
	ErrOverloaded  = errors.New("connection limit reached")
	errSendTimeout = errors.New("broadcast send timed out")
)

const defaultSendTimeout = 5 * time.Second

// Registry tracks live connections in two pools per event link and fans
// messages out to them. It is an injected component with no global state;
// callers create one at startup and tests create one per case.
type Registry struct {
	mu    sync.Mutex
	pools map[Pool]map[string][]Conn
	total int

	perEventLimit int
	totalLimit    int
	sendTimeout   time.Duration
	logger        *slog.Logger
}

func NewRegistry(perEventLimit, totalLimit int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		pools: map[Pool]map[string][]Conn{
			PoolVoter:   {},
			PoolDisplay: {},
		},
		perEventLimit: perEventLimit,
		totalLimit:    totalLimit,
		sendTimeout:   defaultSendTimeout,
		logger:        logger,
	}
}

// Subscribe admits the connection unless the global or per-event ceiling is
// reached.
func (r *Registry) Subscribe(pool Pool, link string, c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.totalLimit > 0 && r.total >= r.totalLimit {
		return ErrOverloaded
	}
	conns := r.pools[pool][link]
	if r.perEventLimit > 0 && len(conns) >= r.perEventLimit {
		return ErrOverloaded
	}

	r.pools[pool][link] = append(conns, c)
	r.total++
	metrics.ConnOpened(string(pool))
	return nil
}

// Unsubscribe removes the connection; an emptied pool entry is deleted so
// links do not accumulate.
func (r *Registry) Unsubscribe(pool Pool, link string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(pool, link, c)
}

func (r *Registry) remove(pool Pool, link string, c Conn) {
	conns := r.pools[pool][link]
	for i, existing := range conns {
		if existing == c {
			r.pools[pool][link] = append(conns[:i], conns[i+1:]...)
			r.total--
			metrics.ConnClosed(string(pool))
			break
		}
	}
	if len(r.pools[pool][link]) == 0 {
		delete(r.pools[pool], link)
	}
}

// Broadcast sends msg to every subscriber of the pool concurrently. Each
// send is bounded by the registry timeout; connections that fail or time out
// are collected during the scan and evicted afterwards, so one slow peer
// neither delays the rest nor mutates the list mid-iteration.
func (r *Registry) Broadcast(pool Pool, link string, msg any) {
	r.mu.Lock()
	conns := make([]Conn, len(r.pools[pool][link]))
	copy(conns, r.pools[pool][link])
	r.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		deadMu sync.Mutex
		dead   []Conn
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			if err := r.send(c, msg); err != nil {
				deadMu.Lock()
				dead = append(dead, c)
				deadMu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	for _, c := range dead {
		r.remove(pool, link, c)
	}
	r.mu.Unlock()
	for _, c := range dead {
		_ = c.Close()
		metrics.IncEviction()
	}
	r.logger.Warn("evicted dead connections", "pool", string(pool), "link", link, "count", len(dead))
}

func (r *Registry) send(c Conn, msg any) error {
	done := make(chan error, 1)
	go func() { done <- c.WriteJSON(msg) }()
	select {
	case err := <-done:
		return err
	case <-time.After(r.sendTimeout):
		return errSendTimeout
	}
}

func (r *Registry) Count(pool Pool, link string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools[pool][link])
}

func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// CloseAll tears every connection down, used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var all []Conn
	for pool, links := range r.pools {
		for link, conns := range links {
			for _, c := range conns {
				all = append(all, c)
				metrics.ConnClosed(string(pool))
			}
			delete(links, link)
		}
	}
	r.total = 0
	r.mu.Unlock()

	for _, c := range all {
		_ = c.Close()
	}
}

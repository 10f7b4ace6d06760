package interview

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	defaultSessionTTL = time.Hour
	cleanupInterval   = 10 * time.Minute
)

// Sessions is an in-memory registry of sessions that expire after a period
// of inactivity. An expired or deleted session has its index released.
type Sessions struct {
	cache *cache.Cache
}

// NewSessions creates a registry whose sessions expire ttl after their last
// use. ttl <= 0 uses one hour.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	interval := cleanupInterval
	if ttl < interval {
		interval = ttl
	}
	c := cache.New(ttl, interval)
	c.OnEvicted(func(id string, v any) {
		s, ok := v.(*Session)
		if !ok {
			return
		}
		if err := s.Close(context.Background()); err != nil {
			slog.Warn("closing evicted session", "session", id, "error", err)
			return
		}
		slog.Debug("session evicted", "session", id)
	})
	return &Sessions{cache: c}
}

// Get returns the session with id and extends its lifetime.
func (r *Sessions) Get(id string) (*Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*Session)
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// GetOrCreate returns the session with id. When id names no live session a
// new one is created under a fresh server-issued id; callers never choose
// their own. The second result reports whether a new session was created.
func (r *Sessions) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false
		}
	}
	for {
		s := NewSession(uuid.NewString())
		if err := r.cache.Add(s.ID(), s, cache.DefaultExpiration); err == nil {
			return s, true
		}
	}
}

// Delete removes the session and releases its index.
func (r *Sessions) Delete(id string) {
	r.cache.Delete(id)
}

// Len returns the number of live sessions, including expired ones not yet
// cleaned up.
func (r *Sessions) Len() int {
	return r.cache.ItemCount()
}

// Close releases every session.
func (r *Sessions) Close() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}

package game

import (
	"context"
	"sync"
	"time"
)

// Registry stores the single active session of each chat. Get returns
// (nil, nil) when the chat has no session.
type Registry interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, chatID int64) error
}

// memRegistry is the in-memory registry used when no Redis is configured.
// Sessions older than the TTL are dropped on access.
type memRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
}

func NewMemoryRegistry(ttl time.Duration) Registry {
	return &memRegistry{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}
}

func (m *memRegistry) Get(ctx context.Context, chatID int64) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok || sess == nil {
		return nil, nil
	}
	if m.ttl > 0 && time.Since(sess.UpdatedAt) > m.ttl {
		m.mu.Lock()
		delete(m.sessions, chatID)
		m.mu.Unlock()
		return nil, nil
	}
	return cloneSession(sess), nil
}

func (m *memRegistry) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	m.mu.Lock()
	m.sessions[sess.ChatID] = cloneSession(sess)
	m.mu.Unlock()
	return nil
}

func (m *memRegistry) Delete(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
	return nil
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Moves = append([]string(nil), s.Moves...)
	c.Snapshots = append([]int(nil), s.Snapshots...)
	c.UI.BoardMessageIDs = append([]int64(nil), s.UI.BoardMessageIDs...)
	c.UI.NoticeIDs = append([]int64(nil), s.UI.NoticeIDs...)
	return &c
}

package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/core"
	"github.com/sehatlink/teleconsult/internal/domain"
)

// PresenceRegistry maps a user id to its live signaling connection.
// Process-scoped, rebuilt from zero on restart, never persisted.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]core.SignalConnection
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{conns: make(map[domain.UserID]core.SignalConnection)}
}

// Register binds uid to conn. A second login overwrites the previous
// entry; the evicted connection is not closed here, it simply stops
// receiving room traffic.
func (p *PresenceRegistry) Register(uid domain.UserID, conn core.SignalConnection) (evicted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, evicted = p.conns[uid]
	p.conns[uid] = conn
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Bool("evicted_prior", evicted).Msg("registered connection")
	return evicted
}

// Deregister removes uid only if conn is still the registered handle.
// This keeps a late disconnect of an evicted channel from tearing down
// the entry of the login that replaced it.
func (p *PresenceRegistry) Deregister(uid domain.UserID, conn core.SignalConnection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.conns[uid]
	if !ok || (conn != nil && cur != conn) {
		return false
	}
	delete(p.conns, uid)
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Msg("deregistered connection")
	return true
}

func (p *PresenceRegistry) Get(uid domain.UserID) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[uid]
	return c, ok
}

func (p *PresenceRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

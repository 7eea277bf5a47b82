package hub

import (
	"sort"
	"sync"
)

type presenceEntry struct {
	name string
	room string
}

// Presence is the bidirectional mapping between live connections and
// their display name and current room. It is the only shared mutable
// state in the coordinator besides the room index; every operation holds
// the one mutex for its full critical section and nothing else.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]*presenceEntry // connection id -> entry
	names map[string]string         // display name -> connection id, most recent wins
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{
		conns: make(map[string]*presenceEntry),
		names: make(map[string]string),
	}
}

// Register inserts or overwrites the entry for a connection. On a display
// name collision the new connection silently takes over the reverse
// mapping; the superseded connection is not notified.
func (p *Presence) Register(connID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[connID] = &presenceEntry{name: name}
	p.names[name] = connID
}

// Claim re-points an existing display name at a fresh connection after a
// transport drop. It reports whether the name was known.
func (p *Presence) Claim(name, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.names[name]; !ok {
		return false
	}
	p.names[name] = connID
	p.conns[connID] = &presenceEntry{name: name}
	return true
}

// SetRoom records the connection's current room. Unknown connections are
// a no-op.
func (p *Presence) SetRoom(connID, room string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.conns[connID]; ok {
		entry.room = room
	}
}

// Name returns the display name for a connection.
func (p *Presence) Name(connID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.conns[connID]
	if !ok {
		return "", false
	}
	return entry.name, true
}

// Room returns the connection's current room, empty before the first join.
func (p *Presence) Room(connID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.conns[connID]
	if !ok {
		return "", false
	}
	return entry.room, true
}

// Lookup returns the connection currently holding a display name.
func (p *Presence) Lookup(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.names[name]
	return connID, ok
}

// Remove deletes the connection's entry and returns its display name.
// The reverse mapping is cleared only if it still points at this
// connection, so a rapid reconnect that already claimed the name is not
// clobbered by the old connection's teardown.
func (p *Presence) Remove(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.conns[connID]
	if !ok {
		return "", false
	}
	delete(p.conns, connID)
	if p.names[entry.name] == connID {
		delete(p.names, entry.name)
	}
	return entry.name, true
}

// Names returns a sorted snapshot of all online display names.
func (p *Presence) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.conns))
	for _, entry := range p.conns {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

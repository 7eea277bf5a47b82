package hub

import "sync"

// Rooms is the subscription index: which connections receive a room's
// events. A room exists as soon as anyone subscribes and disappears with
// its last subscriber; nothing is buffered for late joiners.
type Rooms struct {
	mu   sync.RWMutex
	subs map[string]map[string]*Client // room -> connection id -> client
}

// NewRooms creates an empty subscription index.
func NewRooms() *Rooms {
	return &Rooms{subs: make(map[string]map[string]*Client)}
}

// Subscribe adds the client to the room's subscriber set. Keyed by
// connection id, so re-joining the same room keeps exactly one
// subscription.
func (r *Rooms) Subscribe(room string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[room]
	if !ok {
		set = make(map[string]*Client)
		r.subs[room] = set
	}
	set[c.ID] = c
}

// Unsubscribe removes the connection from the room's subscriber set.
func (r *Rooms) Unsubscribe(room, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[room]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.subs, room)
	}
}

// Publish delivers raw bytes to every connection subscribed to the room
// at the moment of the call, except exceptID (empty to deliver to all).
// The subscriber set is snapshotted under the read lock and each delivery
// is a non-blocking channel send, so one slow or dead connection cannot
// stall the room.
func (r *Rooms) Publish(room string, data []byte, exceptID string) {
	r.mu.RLock()
	subscribers := make([]*Client, 0, len(r.subs[room]))
	for id, c := range r.subs[room] {
		if id != exceptID {
			subscribers = append(subscribers, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range subscribers {
		c.enqueue(data)
	}
}

// Subscribers returns the connection ids currently subscribed to a room.
func (r *Rooms) Subscribers(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.subs[room]))
	for id := range r.subs[room] {
		ids = append(ids, id)
	}
	return ids
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"sync"
)

// Conn is one live client channel as the Board sees it.
type Conn interface {
	ID() string
	Send(msg Message) error
	Close() error
}

// Stats is served on /stats.
type Stats struct {
	Rooms       int            `json:"rooms"`
	Connections int            `json:"connections"`
	Joined      int            `json:"joined"`
	Held        int            `json:"held"`
	Members     map[string]int `json:"members"`
}

// Board owns the connection registry and the object store. Every handler
// runs under mu, so each read-modify-write on either is atomic.
//
// Cursors are scoped to a room, objects are not: every live connection
// sees every object update.
type Board struct {
	cfg *Config

	mu       sync.Mutex
	conns    map[string]Conn
	registry *Registry
	objects  *ObjectStore
}

func newBoard(cfg *Config, objects *ObjectStore) *Board {
	return &Board{
		cfg:      cfg,
		conns:    make(map[string]Conn),
		registry: newRegistry(),
		objects:  objects,
	}
}

// attach makes c a live connection. It receives global object updates
// from now on, joined or not.
func (b *Board) attach(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conns[c.ID()] = c
}

// handle decodes one incoming frame and applies it. Anything malformed or
// unknown is dropped.
func (b *Board) handle(c Conn, raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		logf(b.cfg, "DROP: Malformed frame from %s: %v", c.ID(), err)
		return
	}

	switch f.Event {
	case eventJoin:
		if req, ok := f.joinRequest(); ok {
			b.join(c, req.Username, req.RoomID)
		}
	case eventCursorMove:
		if p, ok := f.cursorMove(); ok {
			b.cursorMove(c.ID(), p.X, p.Y)
		}
	case eventPickObject:
		if id, ok := f.id(); ok {
			b.pick(c.ID(), id)
		}
	case eventMoveObject:
		if p, ok := f.objectMove(); ok {
			b.move(c.ID(), p.ID, p.X, p.Y)
		}
	case eventDropObject:
		if id, ok := f.id(); ok {
			b.drop(c.ID(), id)
		}
	default:
		logf(b.cfg, "DROP: Unknown event %q from %s", f.Event, c.ID())
	}
}

// join registers c in roomID and replies with the object snapshot. A
// repeated join overwrites the earlier one; if the room changed, the old
// room is told to forget this cursor.
func (b *Board) join(c Conn, username, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := c.ID()
	if _, live := b.conns[id]; !live {
		b.conns[id] = c
	}

	prev, existed := b.registry.join(id, username, roomID)
	if existed && prev.RoomID != roomID {
		b.broadcastToRoomLocked(prev.RoomID, id, Message{Event: eventCursorRemove, Data: id})
	}

	logf(b.cfg, "JOIN: %s (%q) joined room %q", id, username, roomID)

	b.sendToLocked(id, Message{Event: eventInitObjects, Data: b.objects.snapshot()})
}

func (b *Board) cursorMove(id string, x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.registry.lookup(id)
	if !ok {
		return
	}

	b.broadcastToRoomLocked(m.RoomID, id, Message{
		Event: eventCursorUpdate,
		Data:  CursorUpdate{ID: id, X: x, Y: y, Username: m.Username},
	})
}

func (b *Board) pick(requester, objectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o, ok := b.objects.pick(objectID, requester); ok {
		logf(b.cfg, "OBJECT: %s picked by %s", o.ID, requester)
		b.broadcastGlobalLocked(Message{Event: eventObjectUpdate, Data: o})
	}
}

func (b *Board) move(requester, objectID string, x, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o, ok := b.objects.move(objectID, x, y, requester); ok {
		b.broadcastGlobalLocked(Message{Event: eventObjectUpdate, Data: o})
	}
}

func (b *Board) drop(requester, objectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o, ok := b.objects.drop(objectID, requester); ok {
		logf(b.cfg, "OBJECT: %s dropped by %s", o.ID, requester)
		b.broadcastGlobalLocked(Message{Event: eventObjectUpdate, Data: o})
	}
}

// disconnect runs the cleanup for a lost connection: peers in its room drop
// its cursor, the registry forgets it, and anything it held is freed. Safe
// to call more than once.
func (b *Board) disconnect(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := c.ID()
	delete(b.conns, id)

	if m, ok := b.registry.leave(id); ok {
		b.broadcastToRoomLocked(m.RoomID, id, Message{Event: eventCursorRemove, Data: id})
		logf(b.cfg, "LEAVE: %s (%q) left room %q", id, m.Username, m.RoomID)
	}

	for _, o := range b.objects.releaseAll(id) {
		logf(b.cfg, "OBJECT: %s released after %s disconnected", o.ID, id)
		b.broadcastGlobalLocked(Message{Event: eventObjectUpdate, Data: o})
	}
}

func (b *Board) stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := b.registry.rooms()
	return Stats{
		Rooms:       len(members),
		Connections: len(b.conns),
		Joined:      b.registry.len(),
		Held:        b.objects.heldCount(),
		Members:     members,
	}
}

func (b *Board) snapshot() []SharedObject {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.objects.snapshot()
}

// The helpers below assume b.mu is held. Delivery is fire-and-forget: a
// connection that cannot take a message is closed, and its read side will
// then run disconnect.

func (b *Board) sendToLocked(id string, msg Message) {
	c, ok := b.conns[id]
	if !ok {
		return
	}
	b.deliverLocked(c, msg)
}

func (b *Board) broadcastToRoomLocked(roomID, exclude string, msg Message) {
	for _, m := range b.registry.inRoom(roomID) {
		if m.ID == exclude {
			continue
		}
		b.sendToLocked(m.ID, msg)
	}
}

func (b *Board) broadcastGlobalLocked(msg Message) {
	ids := make([]string, 0, len(b.conns))
	for id := range b.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b.deliverLocked(b.conns[id], msg)
	}
}

func (b *Board) deliverLocked(c Conn, msg Message) {
	if err := c.Send(msg); err != nil {
		logf(b.cfg, "DROP: Closing %s: %v", c.ID(), err)
		_ = c.Close()
	}
}

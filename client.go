/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// client is one simulated user: it mirrors the shared objects, tracks the
// other cursors in its room, and sends its own pointer and drags.
type client struct {
	cfg      *Config
	username string
	room     string

	conn    *websocket.Conn
	writeMu sync.Mutex

	throttle *Throttle
	cursors  *Cursors

	mu       sync.RWMutex
	objects  []SharedObject
	dragging string
}

func newClient(cfg *Config, username, room string, throttle *Throttle) *client {
	return &client{
		cfg:      cfg,
		username: username,
		room:     room,
		throttle: throttle,
		cursors:  newCursors(),
	}
}

// dial connects to the server and joins the room.
func (c *client) dial(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	c.conn = conn

	return c.send(eventJoin, JoinRequest{Username: c.username, RoomID: c.room})
}

func (c *client) send(event string, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(Message{Event: event, Data: data})
}

// readLoop applies server events until the connection closes.
func (c *client) readLoop() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		f, err := decodeFrame(data)
		if err != nil {
			logf(c.cfg, "BOT: %s dropped malformed frame: %v", c.username, err)
			continue
		}
		c.apply(f)
	}
}

func (c *client) apply(f frame) {
	switch f.Event {
	case eventInitObjects:
		if list, ok := f.objects(); ok {
			c.mu.Lock()
			c.objects = list
			c.mu.Unlock()
		}
	case eventObjectUpdate:
		if o, ok := f.object(); ok {
			c.replaceObject(o)
		}
	case eventCursorUpdate:
		if u, ok := f.cursorUpdate(); ok {
			c.cursors.update(u.ID, u.X, u.Y, u.Username)
		}
	case eventCursorRemove:
		if id, ok := f.id(); ok {
			c.cursors.remove(id)
		}
	}
}

func (c *client) replaceObject(o SharedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.objects {
		if c.objects[i].ID == o.ID {
			c.objects[i] = o
			return
		}
	}
}

func (c *client) objectsSnapshot() []SharedObject {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]SharedObject, len(c.objects))
	copy(out, c.objects)
	return out
}

func (c *client) draggingID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.dragging
}

// movePointer reports the local pointer position. Sends are throttled per
// event kind; a move that is throttled away is simply not sent.
func (c *client) movePointer(x, y float64) error {
	if c.throttle.allow(eventCursorMove) {
		if err := c.send(eventCursorMove, CursorMove{X: x, Y: y}); err != nil {
			return err
		}
	}

	id := c.draggingID()
	if id != "" && c.throttle.allow(eventMoveObject) {
		return c.send(eventMoveObject, ObjectMove{ID: id, X: x, Y: y})
	}
	return nil
}

// pick asks for the object and starts dragging it. The server decides; if
// someone else got there first the moves are ignored.
func (c *client) pick(id string) error {
	c.mu.Lock()
	c.dragging = id
	c.mu.Unlock()

	return c.send(eventPickObject, id)
}

func (c *client) release() error {
	c.mu.Lock()
	id := c.dragging
	c.dragging = ""
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	return c.send(eventDropObject, id)
}

func (c *client) close() error {
	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return c.conn.Close()
}

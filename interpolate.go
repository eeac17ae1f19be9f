/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"
)

// easing is the share of the remaining distance covered per frame.
const easing = 0.2

// CursorState is a remote pointer as displayed locally.
type CursorState struct {
	X        float64
	Y        float64
	TargetX  float64
	TargetY  float64
	Username string
}

// Cursors tracks remote pointers by connection id. All access goes through
// mu, so a render never sees a half-applied update.
type Cursors struct {
	mu     sync.RWMutex
	states map[string]CursorState
}

func newCursors() *Cursors {
	return &Cursors{
		states: make(map[string]CursorState),
	}
}

// update sets the target for id. The first sighting puts the cursor
// straight at the target instead of sliding in from the origin.
func (c *Cursors) update(id string, x, y float64, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.states[id]
	if !ok {
		s = CursorState{X: x, Y: y}
	}
	s.TargetX, s.TargetY = x, y
	s.Username = username
	c.states[id] = s
}

func (c *Cursors) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, id)
}

// step moves every cursor a fraction of the way to its target.
func (c *Cursors) step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.states {
		s.X += (s.TargetX - s.X) * easing
		s.Y += (s.TargetY - s.Y) * easing
		c.states[id] = s
	}
}

func (c *Cursors) snapshot() map[string]CursorState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]CursorState, len(c.states))
	for id, s := range c.states {
		out[id] = s
	}
	return out
}

func (c *Cursors) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}

// animate runs step once per frame until ctx ends, whether or not any
// network updates arrive.
func (c *Cursors) animate(ctx context.Context, frameRate int) {
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.step()
		}
	}
}

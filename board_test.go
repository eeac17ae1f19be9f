/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu       sync.Mutex
	received []Message
	sendErr  error
	closed   bool
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received = append(f.received, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.received))
	copy(out, f.received)
	return out
}

func (f *fakeConn) events() []string {
	var out []string
	for _, m := range f.messages() {
		out = append(out, m.Event)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testBoard(t *testing.T) *Board {
	t.Helper()
	store, err := newObjectStore(defaultObjects())
	require.NoError(t, err)
	return newBoard(&Config{}, store)
}

func joined(t *testing.T, b *Board, id, username, room string) *fakeConn {
	t.Helper()
	c := &fakeConn{id: id}
	b.attach(c)
	b.join(c, username, room)
	return c
}

func resetAll(conns ...*fakeConn) {
	for _, c := range conns {
		c.reset()
	}
}

func TestBoard_JoinSendsSnapshotOnlyToJoiner(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	a.reset()

	c := joined(t, b, "B", "bob", "x")

	assert.Empty(t, a.messages())
	msgs := c.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, eventInitObjects, msgs[0].Event)
	assert.Equal(t, defaultObjects(), msgs[0].Data)
}

func TestBoard_Scenario(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	bb := joined(t, b, "B", "bob", "x")
	c := joined(t, b, "C", "carol", "y")
	resetAll(a, bb, c)

	b.pick("A", "obj1")
	want := SharedObject{ID: "obj1", X: 200, Y: 200, HeldBy: "A"}
	for _, conn := range []*fakeConn{a, bb, c} {
		assert.Equal(t, []Message{{Event: eventObjectUpdate, Data: want}}, conn.messages(), conn.id)
	}
	resetAll(a, bb, c)

	b.pick("B", "obj1")
	for _, conn := range []*fakeConn{a, bb, c} {
		assert.Empty(t, conn.messages(), conn.id)
	}

	b.move("A", "obj1", 50, 60)
	want = SharedObject{ID: "obj1", X: 50, Y: 60, HeldBy: "A"}
	assert.Equal(t, []Message{{Event: eventObjectUpdate, Data: want}}, bb.messages())
	assert.Equal(t, []Message{{Event: eventObjectUpdate, Data: want}}, c.messages())
	resetAll(a, bb, c)

	b.disconnect(a)
	freed := SharedObject{ID: "obj1", X: 50, Y: 60}
	assert.Equal(t, []Message{
		{Event: eventCursorRemove, Data: "A"},
		{Event: eventObjectUpdate, Data: freed},
	}, bb.messages())
	assert.Equal(t, []Message{{Event: eventObjectUpdate, Data: freed}}, c.messages())
	assert.Empty(t, a.messages())

	for _, o := range b.snapshot() {
		assert.False(t, o.Held(), o.ID)
	}
}

func TestBoard_CursorMoveIsRoomScoped(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	bb := joined(t, b, "B", "bob", "x")
	c := joined(t, b, "C", "carol", "y")
	resetAll(a, bb, c)

	b.cursorMove("A", 10, 20)

	assert.Empty(t, a.messages(), "sender must not receive its own cursor")
	assert.Empty(t, c.messages(), "other rooms must not receive the cursor")
	assert.Equal(t, []Message{{
		Event: eventCursorUpdate,
		Data:  CursorUpdate{ID: "A", X: 10, Y: 20, Username: "alice"},
	}}, bb.messages())
}

func TestBoard_CursorMoveBeforeJoinIsIgnored(t *testing.T) {
	b := testBoard(t)
	stranger := &fakeConn{id: "S"}
	b.attach(stranger)
	peer := joined(t, b, "P", "pat", "x")
	peer.reset()

	b.cursorMove("S", 1, 2)

	assert.Empty(t, peer.messages())
	assert.Empty(t, stranger.messages())
}

func TestBoard_UnjoinedConnectionsStillSeeObjects(t *testing.T) {
	b := testBoard(t)
	watcher := &fakeConn{id: "W"}
	b.attach(watcher)
	joined(t, b, "A", "alice", "x")

	b.pick("A", "obj2")

	assert.Equal(t, []string{eventObjectUpdate}, watcher.events())
}

func TestBoard_NonOwnerCannotMoveOrDrop(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	bb := joined(t, b, "B", "bob", "x")
	b.pick("A", "obj1")
	resetAll(a, bb)

	b.move("B", "obj1", 999, 999)
	b.drop("B", "obj1")
	b.move("B", "nope", 1, 1)
	b.drop("A", "obj2")

	assert.Empty(t, a.messages())
	assert.Empty(t, bb.messages())
	assert.Equal(t, SharedObject{ID: "obj1", X: 200, Y: 200, HeldBy: "A"}, b.snapshot()[0])

	b.drop("A", "obj1")
	assert.Equal(t, []Message{{Event: eventObjectUpdate, Data: SharedObject{ID: "obj1", X: 200, Y: 200}}}, bb.messages())
}

func TestBoard_DisconnectReleasesEverythingHeld(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	other := joined(t, b, "B", "bob", "y")
	b.pick("A", "obj1")
	b.pick("A", "obj2")
	other.reset()

	b.disconnect(a)

	assert.Equal(t, []string{eventObjectUpdate, eventObjectUpdate}, other.events())
	assert.Zero(t, b.stats().Held)

	other.reset()
	b.disconnect(a)
	assert.Empty(t, other.messages(), "second disconnect is a no-op")
}

func TestBoard_DisconnectWithoutJoin(t *testing.T) {
	b := testBoard(t)
	stranger := &fakeConn{id: "S"}
	b.attach(stranger)
	peer := joined(t, b, "P", "pat", "x")
	peer.reset()

	b.disconnect(stranger)

	assert.Empty(t, peer.messages())
	assert.Equal(t, 1, b.stats().Connections)
}

func TestBoard_RejoinLastWriteWins(t *testing.T) {
	b := testBoard(t)
	a := joined(t, b, "A", "alice", "x")
	oldPeer := joined(t, b, "B", "bob", "x")
	newPeer := joined(t, b, "C", "carol", "y")
	resetAll(a, oldPeer, newPeer)

	b.join(a, "alicia", "y")

	assert.Equal(t, []Message{{Event: eventCursorRemove, Data: "A"}}, oldPeer.messages())
	assert.Equal(t, []string{eventInitObjects}, a.events())

	b.cursorMove("A", 5, 5)
	assert.Equal(t, []Message{{Event: eventCursorUpdate, Data: CursorUpdate{ID: "A", X: 5, Y: 5, Username: "alicia"}}}, newPeer.messages())
	assert.Len(t, oldPeer.messages(), 1)
}

func TestBoard_MalformedFramesAreIgnored(t *testing.T) {
	frames := []string{
		``,
		`not json`,
		`{}`,
		`{"event":""}`,
		`{"event":"launch-missiles","data":{}}`,
		`{"event":"join"}`,
		`{"event":"join","data":{"username":"x"}}`,
		`{"event":"join","data":"room"}`,
		`{"event":"cursor-move","data":{"x":1}}`,
		`{"event":"cursor-move","data":{"x":"1","y":2}}`,
		`{"event":"pick-object","data":{"id":"obj1"}}`,
		`{"event":"pick-object","data":42}`,
		`{"event":"move-object","data":{"id":"obj1","x":1}}`,
		`{"event":"drop-object"}`,
		`[1,2,3]`,
	}

	b := testBoard(t)
	sender := joined(t, b, "A", "alice", "x")
	peer := joined(t, b, "B", "bob", "x")
	resetAll(sender, peer)

	for _, raw := range frames {
		assert.NotPanics(t, func() { b.handle(sender, []byte(raw)) }, raw)
	}

	assert.Empty(t, sender.messages())
	assert.Empty(t, peer.messages())
	assert.Zero(t, b.stats().Held)
}

func TestBoard_HandleDispatchesEvents(t *testing.T) {
	b := testBoard(t)
	a := &fakeConn{id: "A"}
	peer := joined(t, b, "B", "bob", "x")
	b.attach(a)

	b.handle(a, []byte(`{"event":"join","data":{"username":"alice","roomId":"x"}}`))
	assert.Equal(t, []string{eventInitObjects}, a.events())
	peer.reset()

	b.handle(a, []byte(`{"event":"cursor-move","data":{"x":3,"y":4}}`))
	b.handle(a, []byte(`{"event":"pick-object","data":"obj2"}`))
	b.handle(a, []byte(`{"event":"move-object","data":{"id":"obj2","x":7.5,"y":8}}`))
	b.handle(a, []byte(`{"event":"drop-object","data":"obj2"}`))

	assert.Equal(t, []Message{
		{Event: eventCursorUpdate, Data: CursorUpdate{ID: "A", X: 3, Y: 4, Username: "alice"}},
		{Event: eventObjectUpdate, Data: SharedObject{ID: "obj2", X: 400, Y: 300, HeldBy: "A"}},
		{Event: eventObjectUpdate, Data: SharedObject{ID: "obj2", X: 7.5, Y: 8, HeldBy: "A"}},
		{Event: eventObjectUpdate, Data: SharedObject{ID: "obj2", X: 7.5, Y: 8}},
	}, peer.messages())
}

func TestBoard_FailedSendClosesConnection(t *testing.T) {
	b := testBoard(t)
	slow := joined(t, b, "S", "slow", "x")
	slow.sendErr = errors.New("buffer full")
	joined(t, b, "A", "alice", "x")

	b.pick("A", "obj1")

	assert.True(t, slow.isClosed())
}

func TestBoard_ConcurrentPicksHaveOneWinner(t *testing.T) {
	b := testBoard(t)
	watcher := &fakeConn{id: "W"}
	b.attach(watcher)

	const pickers = 32
	var wg sync.WaitGroup
	for i := range pickers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.pick(string(rune('a'+i)), "obj1")
		}()
	}
	wg.Wait()

	msgs := watcher.messages()
	require.Len(t, msgs, 1)
	winner := msgs[0].Data.(SharedObject).HeldBy
	assert.NotEmpty(t, winner)
	assert.Equal(t, winner, b.snapshot()[0].HeldBy)
}

func TestBoard_Stats(t *testing.T) {
	b := testBoard(t)
	b.attach(&fakeConn{id: "W"})
	joined(t, b, "A", "alice", "x")
	joined(t, b, "B", "bob", "x")
	joined(t, b, "C", "carol", "y")
	b.pick("C", "obj2")

	assert.Equal(t, Stats{
		Rooms:       2,
		Connections: 4,
		Joined:      3,
		Held:        1,
		Members:     map[string]int{"x": 2, "y": 1},
	}, b.stats())
}

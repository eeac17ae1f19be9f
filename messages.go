/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
)

// Event names, shared by the server and the bot client.
const (
	eventJoin         = "join"          // C->S {username, roomId}
	eventInitObjects  = "init-objects"  // S->C [SharedObject]
	eventCursorMove   = "cursor-move"   // C->S {x, y}
	eventCursorUpdate = "cursor-update" // S->room {id, x, y, username}
	eventCursorRemove = "cursor-remove" // S->room "<id>"
	eventPickObject   = "pick-object"   // C->S "<objectId>"
	eventMoveObject   = "move-object"   // C->S {id, x, y}
	eventDropObject   = "drop-object"   // C->S "<objectId>"
	eventObjectUpdate = "object-update" // S->all SharedObject
)

var errMissingEvent = errors.New("frame has no event name")

// Message is an outgoing frame. Data is marshalled as-is.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// frame is an incoming message whose payload has not been decoded yet.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinRequest struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CursorUpdate struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
}

type ObjectMove struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func decodeFrame(raw []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return frame{}, err
	}
	if f.Event == "" {
		return frame{}, errMissingEvent
	}
	return f, nil
}

// The payload decoders below only check that the fields exist and have the
// right JSON type. Anything else reports false and the frame is dropped.

func (f frame) joinRequest() (JoinRequest, bool) {
	var p struct {
		Username *string `json:"username"`
		RoomID   *string `json:"roomId"`
	}
	if json.Unmarshal(f.Data, &p) != nil || p.Username == nil || p.RoomID == nil {
		return JoinRequest{}, false
	}
	return JoinRequest{Username: *p.Username, RoomID: *p.RoomID}, true
}

func (f frame) cursorMove() (CursorMove, bool) {
	var p struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if json.Unmarshal(f.Data, &p) != nil || p.X == nil || p.Y == nil {
		return CursorMove{}, false
	}
	return CursorMove{X: *p.X, Y: *p.Y}, true
}

func (f frame) cursorUpdate() (CursorUpdate, bool) {
	var p struct {
		ID       *string  `json:"id"`
		X        *float64 `json:"x"`
		Y        *float64 `json:"y"`
		Username string   `json:"username"`
	}
	if json.Unmarshal(f.Data, &p) != nil || p.ID == nil || p.X == nil || p.Y == nil {
		return CursorUpdate{}, false
	}
	return CursorUpdate{ID: *p.ID, X: *p.X, Y: *p.Y, Username: p.Username}, true
}

func (f frame) objectMove() (ObjectMove, bool) {
	var p struct {
		ID *string  `json:"id"`
		X  *float64 `json:"x"`
		Y  *float64 `json:"y"`
	}
	if json.Unmarshal(f.Data, &p) != nil || p.ID == nil || p.X == nil || p.Y == nil {
		return ObjectMove{}, false
	}
	return ObjectMove{ID: *p.ID, X: *p.X, Y: *p.Y}, true
}

// id decodes payloads that are a bare string: pick, drop and cursor-remove.
func (f frame) id() (string, bool) {
	var s string
	if json.Unmarshal(f.Data, &s) != nil {
		return "", false
	}
	return s, true
}

func (f frame) object() (SharedObject, bool) {
	var o SharedObject
	if json.Unmarshal(f.Data, &o) != nil || o.ID == "" {
		return SharedObject{}, false
	}
	return o, true
}

func (f frame) objects() ([]SharedObject, bool) {
	var list []SharedObject
	if json.Unmarshal(f.Data, &list) != nil {
		return nil, false
	}
	return list, true
}

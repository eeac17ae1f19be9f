/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "sort"

// Member is what a connection declared when it joined.
type Member struct {
	ID       string
	Username string
	RoomID   string
}

// Registry maps live connection ids to their declared username and room.
// Rooms are not stored; they are derived by filtering members.
type Registry struct {
	members map[string]Member
}

func newRegistry() *Registry {
	return &Registry{
		members: make(map[string]Member),
	}
}

// join records the association, overwriting any earlier join from the same
// connection. The previous record is returned so callers can clean up the
// room it was in.
func (r *Registry) join(id, username, roomID string) (Member, bool) {
	prev, existed := r.members[id]
	r.members[id] = Member{ID: id, Username: username, RoomID: roomID}
	return prev, existed
}

func (r *Registry) leave(id string) (Member, bool) {
	m, ok := r.members[id]
	if ok {
		delete(r.members, id)
	}
	return m, ok
}

func (r *Registry) lookup(id string) (Member, bool) {
	m, ok := r.members[id]
	return m, ok
}

// inRoom lists the members of roomID, ordered by connection id.
func (r *Registry) inRoom(roomID string) []Member {
	var out []Member
	for _, m := range r.members {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// rooms counts members per room.
func (r *Registry) rooms() map[string]int {
	out := make(map[string]int)
	for _, m := range r.members {
		out[m.RoomID]++
	}
	return out
}

func (r *Registry) len() int {
	return len(r.members)
}

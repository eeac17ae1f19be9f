/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrEmptyObjectID     = errors.New("object id must not be empty")
	ErrDuplicateObjectID = errors.New("duplicate object id")
	ErrNoObjects         = errors.New("layout contains no objects")
)

// SharedObject is a draggable rectangle. HeldBy is the connection id of the
// current holder, or empty when the object is free.
type SharedObject struct {
	ID     string
	X      float64
	Y      float64
	HeldBy string
}

type sharedObjectJSON struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	HeldBy *string `json:"heldBy"`
}

// MarshalJSON encodes a free object with "heldBy": null.
func (o SharedObject) MarshalJSON() ([]byte, error) {
	w := sharedObjectJSON{ID: o.ID, X: o.X, Y: o.Y}
	if o.HeldBy != "" {
		holder := o.HeldBy
		w.HeldBy = &holder
	}
	return json.Marshal(w)
}

func (o *SharedObject) UnmarshalJSON(data []byte) error {
	var w sharedObjectJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = SharedObject{ID: w.ID, X: w.X, Y: w.Y}
	if w.HeldBy != nil {
		o.HeldBy = *w.HeldBy
	}
	return nil
}

func (o SharedObject) Held() bool {
	return o.HeldBy != ""
}

func defaultObjects() []SharedObject {
	return []SharedObject{
		{ID: "obj1", X: 200, Y: 200},
		{ID: "obj2", X: 400, Y: 300},
	}
}

type layoutFile struct {
	Objects []struct {
		ID string  `toml:"id"`
		X  float64 `toml:"x"`
		Y  float64 `toml:"y"`
	} `toml:"object"`
}

// loadLayout reads the starting objects from a TOML file of the form
//
//	[[object]]
//	id = "obj1"
//	x = 200.0
//	y = 200.0
func loadLayout(path string) ([]SharedObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout load failed (%s): %w", path, err)
	}

	var file layoutFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("layout parse failed (%s): %w", path, err)
	}
	if len(file.Objects) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoObjects, path)
	}

	objects := make([]SharedObject, 0, len(file.Objects))
	for _, o := range file.Objects {
		objects = append(objects, SharedObject{ID: o.ID, X: o.X, Y: o.Y})
	}
	return objects, nil
}

// ObjectStore holds the fixed set of shared objects and applies the
// ownership rules. It does no locking; the Board serializes access.
type ObjectStore struct {
	objects []SharedObject
	index   map[string]int
}

func newObjectStore(objects []SharedObject) (*ObjectStore, error) {
	s := &ObjectStore{
		objects: make([]SharedObject, 0, len(objects)),
		index:   make(map[string]int, len(objects)),
	}
	for _, o := range objects {
		if o.ID == "" {
			return nil, ErrEmptyObjectID
		}
		if _, dup := s.index[o.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateObjectID, o.ID)
		}
		o.HeldBy = ""
		s.index[o.ID] = len(s.objects)
		s.objects = append(s.objects, o)
	}
	return s, nil
}

func (s *ObjectStore) snapshot() []SharedObject {
	out := make([]SharedObject, len(s.objects))
	copy(out, s.objects)
	return out
}

func (s *ObjectStore) get(id string) (*SharedObject, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.objects[i], true
}

// pick locks a free object for requester. First pick wins.
func (s *ObjectStore) pick(id, requester string) (SharedObject, bool) {
	o, ok := s.get(id)
	if !ok || o.Held() || requester == "" {
		return SharedObject{}, false
	}
	o.HeldBy = requester
	return *o, true
}

// move repositions an object, but only for its current holder.
func (s *ObjectStore) move(id string, x, y float64, requester string) (SharedObject, bool) {
	o, ok := s.get(id)
	if !ok || !o.Held() || o.HeldBy != requester {
		return SharedObject{}, false
	}
	o.X, o.Y = x, y
	return *o, true
}

// drop frees an object, but only for its current holder.
func (s *ObjectStore) drop(id, requester string) (SharedObject, bool) {
	o, ok := s.get(id)
	if !ok || !o.Held() || o.HeldBy != requester {
		return SharedObject{}, false
	}
	o.HeldBy = ""
	return *o, true
}

// forceDrop frees a held object regardless of who holds it.
func (s *ObjectStore) forceDrop(id string) (SharedObject, bool) {
	o, ok := s.get(id)
	if !ok || !o.Held() {
		return SharedObject{}, false
	}
	o.HeldBy = ""
	return *o, true
}

// releaseAll force-drops every object held by owner and returns them in
// store order.
func (s *ObjectStore) releaseAll(owner string) []SharedObject {
	if owner == "" {
		return nil
	}

	var released []SharedObject
	for _, o := range s.objects {
		if o.HeldBy != owner {
			continue
		}
		if freed, ok := s.forceDrop(o.ID); ok {
			released = append(released, freed)
		}
	}
	return released
}

func (s *ObjectStore) heldCount() int {
	n := 0
	for _, o := range s.objects {
		if o.Held() {
			n++
		}
	}
	return n
}

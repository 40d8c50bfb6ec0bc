package tracker

import (
	"fmt"
)

// TrackedObject is a single identity and every box ever matched to it.
type TrackedObject struct {
	ID       int64 `json:"id"`
	History  []Box `json:"history"`
	Centroid Point `json:"centroid"`

	// Frame bookkeeping, used by the retention policy and inspection API.
	FirstSeenFrame uint64 `json:"first_seen_frame"`
	LastSeenFrame  uint64 `json:"last_seen_frame"`
	Misses         int    `json:"misses"`
}

// LastBox returns the most recently matched box.
func (o *TrackedObject) LastBox() Box {
	return o.History[len(o.History)-1]
}

// clone returns a copy whose History does not alias the original.
func (o *TrackedObject) clone() TrackedObject {
	c := *o
	c.History = make([]Box, len(o.History))
	copy(c.History, o.History)
	return c
}

// State is the identity table shared by consecutive frames. It is not safe
// for concurrent use on its own; Tracker serialises access to it.
//
// objects and centroids always hold the same key set. Only create, update,
// evict and reset mutate them and each touches both maps.
type State struct {
	objects   map[int64]*TrackedObject
	centroids map[int64]Point
	order     []int64 // insertion order, drives deterministic tie-breaks
	nextID    int64
	matched   map[int64]struct{}
	frame     uint64
}

// NewState returns an empty identity table.
func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

// Len returns the number of live identities.
func (s *State) Len() int { return len(s.objects) }

// NextID returns the identity the next create will allocate.
func (s *State) NextID() int64 { return s.nextID }

// Frame returns the number of frames begun since the last reset.
func (s *State) Frame() uint64 { return s.frame }

func (s *State) create(b Box) int64 {
	id := s.nextID
	s.nextID++

	c := Centroid(b)
	s.objects[id] = &TrackedObject{
		ID:             id,
		History:        []Box{b},
		Centroid:       c,
		FirstSeenFrame: s.frame,
		LastSeenFrame:  s.frame,
	}
	s.centroids[id] = c
	s.order = append(s.order, id)
	return id
}

// update appends b to an existing identity and marks it matched for the
// current frame. Callers only pass ids returned by match, so an unknown id
// means the table has been corrupted.
func (s *State) update(id int64, b Box) {
	obj, ok := s.objects[id]
	if !ok {
		panic(fmt.Sprintf("tracker: invariant violation: update of unknown identity %d", id))
	}
	c := Centroid(b)
	obj.History = append(obj.History, b)
	obj.Centroid = c
	obj.LastSeenFrame = s.frame
	obj.Misses = 0
	s.centroids[id] = c
	s.matched[id] = struct{}{}
}

// claim marks id as consumed for the current frame.
func (s *State) claim(id int64) {
	s.matched[id] = struct{}{}
}

// beginFrame starts a new frame. Identities claimed in the previous frame
// become matchable again.
func (s *State) beginFrame() {
	s.matched = make(map[int64]struct{})
	s.frame++
}

// evictStale removes identities not seen for more than maxMissed frames.
// maxMissed <= 0 disables eviction. Evicted ids are never reissued.
func (s *State) evictStale(maxMissed int) []int64 {
	var evicted []int64
	kept := s.order[:0]
	for _, id := range s.order {
		obj := s.objects[id]
		obj.Misses = int(s.frame - obj.LastSeenFrame)
		if maxMissed > 0 && obj.Misses > maxMissed {
			delete(s.objects, id)
			delete(s.centroids, id)
			delete(s.matched, id)
			evicted = append(evicted, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return evicted
}

func (s *State) reset() {
	s.objects = make(map[int64]*TrackedObject)
	s.centroids = make(map[int64]Point)
	s.order = nil
	s.nextID = 0
	s.matched = make(map[int64]struct{})
	s.frame = 0
}

// checkInvariants reports the first broken table invariant, if any.
func (s *State) checkInvariants() error {
	if len(s.objects) != len(s.centroids) || len(s.objects) != len(s.order) {
		return fmt.Errorf("table sizes diverged: objects=%d centroids=%d order=%d",
			len(s.objects), len(s.centroids), len(s.order))
	}
	for _, id := range s.order {
		obj, ok := s.objects[id]
		if !ok {
			return fmt.Errorf("identity %d in order but not in objects", id)
		}
		c, ok := s.centroids[id]
		if !ok {
			return fmt.Errorf("identity %d has no centroid", id)
		}
		if len(obj.History) == 0 {
			return fmt.Errorf("identity %d has empty history", id)
		}
		if c != obj.Centroid || c != Centroid(obj.LastBox()) {
			return fmt.Errorf("identity %d centroid out of sync", id)
		}
		if id >= s.nextID {
			return fmt.Errorf("identity %d not below next id %d", id, s.nextID)
		}
	}
	return nil
}

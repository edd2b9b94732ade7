package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sehatlink/teleconsult/internal/domain"
)

// RoomRegistry maps a room id to the set of users live in it right now.
// It is independent of the durable participant log: that log is history,
// this set is presence. Empty rooms are deleted eagerly.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.UserID]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[domain.RoomID]map[domain.UserID]struct{})}
}

// Join adds uid to the room, creating it if absent. It returns the other
// members present before the join, so the caller can notify exactly them.
func (r *RoomRegistry) Join(room domain.RoomID, uid domain.UserID) (others []domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[room]
	if !ok {
		set = make(map[domain.UserID]struct{})
		r.rooms[room] = set
	}
	for member := range set {
		if member != uid {
			others = append(others, member)
		}
	}
	set[uid] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(uid)).Int("members", len(set)).Msg("joined room")
	return others
}

// Leave removes uid from the room and returns the remaining members.
// The room entry is deleted once the set is empty.
func (r *RoomRegistry) Leave(room domain.RoomID, uid domain.UserID) (remaining []domain.UserID, wasMember bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[room]
	if !ok {
		return nil, false
	}
	if _, wasMember = set[uid]; !wasMember {
		return nil, false
	}
	delete(set, uid)
	if len(set) == 0 {
		delete(r.rooms, room)
	} else {
		for member := range set {
			remaining = append(remaining, member)
		}
	}
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(uid)).Int("members", len(set)).Msg("left room")
	return remaining, true
}

// Members returns a snapshot of the room's current live set.
func (r *RoomRegistry) Members(room domain.RoomID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rooms[room]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out
}

// RoomsOf lists every room uid currently occupies. Used by the
// disconnect reconciler, which must purge all of them.
func (r *RoomRegistry) RoomsOf(uid domain.UserID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RoomID
	for room, set := range r.rooms {
		if _, ok := set[uid]; ok {
			out = append(out, room)
		}
	}
	return out
}

func (r *RoomRegistry) Contains(room domain.RoomID, uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rooms[room]
	if !ok {
		return false
	}
	_, ok = set[uid]
	return ok
}

func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

package game

import (
	"github.com/delveworks/sessiond/internal/game/geom"
	"github.com/delveworks/sessiond/internal/game/watch"
)

// Player is the authoritative record for one connected player. It is owned
// exclusively by the Coordinator goroutine and never shared or mutated
// concurrently.
type Player struct {
	// ID is the player's process-unique identifier.
	ID PlayerID
	// Pos is the current world position.
	Pos geom.Vec2
	// Moved is set once the player has moved since the last broadcast.
	Moved bool
	// Turn is the per-player progression counter.
	Turn int64
	// Group is the combat group the player belongs to, or nil.
	Group *GroupID
	// Outbox is the bounded unicast channel to the player's connection actor.
	Outbox chan<- Event
}

// CombatGroup is an ad-hoc set of players sharing a coalescing broadcast
// channel. Membership only grows; the channel persists for the process
// lifetime even if the group empties.
type CombatGroup struct {
	Members map[PlayerID]struct{}
	Feed    *watch.Sender[GroupFrame]
}

// newCombatGroup creates an empty group with a fresh broadcast channel.
func newCombatGroup() *CombatGroup {
	feed, _ := watch.NewChannel(GroupFrame{})
	return &CombatGroup{
		Members: make(map[PlayerID]struct{}),
		Feed:    feed,
	}
}

// State is the single authoritative world state. Only the Coordinator
// goroutine reads or writes it; there is no lock because there is no
// sharing.
type State struct {
	Players map[PlayerID]*Player
	Groups  map[GroupID]*CombatGroup
}

// NewState creates an empty world.
func NewState() *State {
	return &State{
		Players: make(map[PlayerID]*Player),
		Groups:  make(map[GroupID]*CombatGroup),
	}
}

// group returns the combat group for id, creating it lazily.
func (s *State) group(id GroupID) *CombatGroup {
	g, ok := s.Groups[id]
	if !ok {
		g = newCombatGroup()
		s.Groups[id] = g
	}
	return g
}

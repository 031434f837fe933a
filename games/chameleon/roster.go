/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package chameleon

import (
	"cmp"
	"errors"
	"slices"
)

var ErrPlayerNotFound = errors.New("player not found")

// Player is one participant of a session. JoinOrder starts at 1 and is
// unique among the players currently in the session.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"player_name"`
	JoinOrder int    `json:"join_order"`
	IsLeader  bool   `json:"is_leader"`
}

// Roster is the set of players of one session, kept in join order.
type Roster []Player

func (r Roster) sorted() Roster {
	out := slices.Clone(r)
	slices.SortFunc(out, func(a, b Player) int {
		return cmp.Compare(a.JoinOrder, b.JoinOrder)
	})

	return out
}

func (r Roster) index(id string) int {
	return slices.IndexFunc(r, func(p Player) bool {
		return p.ID == id
	})
}

func (r Roster) Find(id string) (Player, bool) {
	if i := r.index(id); i >= 0 {
		return r[i], true
	}

	return Player{}, false
}

func (r Roster) Leader() (Player, bool) {
	for _, p := range r {
		if p.IsLeader {
			return p, true
		}
	}

	return Player{}, false
}

func (r Roster) nextJoinOrder() int {
	n := 0
	for _, p := range r {
		n = max(n, p.JoinOrder)
	}

	return n + 1
}

// Join adds a player to the roster with one more than the highest join order
// present. The first player in leads. Joining again with a known id only
// updates the name.
func (r Roster) Join(id, name string) (Roster, Player) {
	out := r.sorted()

	if i := out.index(id); i >= 0 {
		out[i].Name = name
		return out, out[i]
	}

	p := Player{
		ID:        id,
		Name:      name,
		JoinOrder: out.nextJoinOrder(),
		IsLeader:  len(out) == 0,
	}

	return append(out, p), p
}

// Leave removes id from the roster. If id was leading, the player with the
// lowest remaining join order takes over.
func (r Roster) Leave(id string) (Roster, error) {
	out := r.sorted()

	i := out.index(id)
	if i < 0 {
		return out, ErrPlayerNotFound
	}

	wasLeader := out[i].IsLeader
	out = slices.Delete(out, i, i+1)

	if wasLeader && len(out) > 0 {
		out[0].IsLeader = true
	}

	return out, nil
}

// TransferLeadership makes id the only leader.
func (r Roster) TransferLeadership(id string) (Roster, error) {
	out := r.sorted()

	if out.index(id) < 0 {
		return out, ErrPlayerNotFound
	}

	for i := range out {
		out[i].IsLeader = out[i].ID == id
	}

	return out, nil
}

// CanStart reports whether a round may be dealt for this roster.
func (r Roster) CanStart() error {
	if len(r) < MinPlayers {
		return &NotEnoughPlayersError{Have: len(r)}
	}

	return nil
}

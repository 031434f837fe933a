/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists session documents, Chameleon rosters and content
// lists.
//
// Session documents are opaque JSON blobs overwritten whole on every save.
// Roster changes go through the pure transitions in games/chameleon and are
// applied atomically, so a leader leaving and the hand-over of leadership are
// never observed separately.
package store

import (
	"context"
	"errors"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/chameleon"
	"github.com/Seednode/partyseed/games/reconcile"
)

const StatusActive = "active"

var ErrNotFound = errors.New("not found")

type Store interface {
	// LoadState returns ErrNotFound when no state was ever saved for code.
	LoadState(ctx context.Context, game, code string) ([]byte, error)
	// SaveState overwrites the state for code and marks the session active.
	SaveState(ctx context.Context, game, code string, doc []byte) error
	// Status returns "" for a session that has never been saved.
	Status(ctx context.Context, game, code string) (string, error)

	Pool(ctx context.Context, variant string, mode games.Mode) ([]string, error)
	PutPool(ctx context.Context, variant string, mode games.Mode, items []string) error
	Variants(ctx context.Context, mode games.Mode) ([]string, error)

	Roster(ctx context.Context, code string) (chameleon.Roster, error)
	Join(ctx context.Context, code, playerID, name string) (chameleon.Player, error)
	Leave(ctx context.Context, code, playerID string) (chameleon.Roster, error)
	TransferLeadership(ctx context.Context, code, playerID string) (chameleon.Roster, error)

	Close() error
}

type sessions struct {
	st   Store
	game string
}

// Sessions exposes the documents of one game as a reconcile.Store.
func Sessions(st Store, game string) reconcile.Store {
	return &sessions{st: st, game: game}
}

func (s *sessions) Load(ctx context.Context, code string) ([]byte, error) {
	doc, err := s.st.LoadState(ctx, s.game, code)
	if errors.Is(err, ErrNotFound) {
		return nil, reconcile.ErrNoState
	}

	return doc, err
}

func (s *sessions) Save(ctx context.Context, code string, doc []byte) error {
	return s.st.SaveState(ctx, s.game, code, doc)
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"slices"
	"sync"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/chameleon"
)

type sessionKey struct {
	game string
	code string
}

type sessionRecord struct {
	state  []byte
	status string
}

type poolKey struct {
	variant string
	mode    games.Mode
}

// memory keeps everything in maps. State is lost when the process exits.
type memory struct {
	mu       sync.RWMutex
	sessions map[sessionKey]sessionRecord
	rosters  map[string]chameleon.Roster
	pools    map[poolKey][]string
}

func NewMemory() Store {
	return &memory{
		sessions: make(map[sessionKey]sessionRecord),
		rosters:  make(map[string]chameleon.Roster),
		pools:    make(map[poolKey][]string),
	}
}

func (m *memory) LoadState(_ context.Context, game, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sessions[sessionKey{game, code}]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(rec.state), nil
}

func (m *memory) SaveState(_ context.Context, game, code string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionKey{game, code}] = sessionRecord{
		state:  slices.Clone(doc),
		status: StatusActive,
	}

	return nil
}

func (m *memory) Status(_ context.Context, game, code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessions[sessionKey{game, code}].status, nil
}

func (m *memory) Pool(_ context.Context, variant string, mode games.Mode) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, ok := m.pools[poolKey{variant, mode}]
	if !ok {
		return nil, ErrNotFound
	}

	return slices.Clone(items), nil
}

func (m *memory) PutPool(_ context.Context, variant string, mode games.Mode, items []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pools[poolKey{variant, mode}] = slices.Clone(items)

	return nil
}

func (m *memory) Variants(_ context.Context, mode games.Mode) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for k := range m.pools {
		if k.mode == mode {
			out = append(out, k.variant)
		}
	}
	slices.Sort(out)

	return out, nil
}

func (m *memory) Roster(_ context.Context, code string) (chameleon.Roster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.rosters[code]), nil
}

func (m *memory) Join(_ context.Context, code, playerID, name string) (chameleon.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, p := m.rosters[code].Join(playerID, name)
	m.rosters[code] = roster

	return p, nil
}

func (m *memory) Leave(_ context.Context, code, playerID string) (chameleon.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.rosters[code].Leave(playerID)
	if err != nil {
		return nil, err
	}

	if len(roster) == 0 {
		delete(m.rosters, code)
	} else {
		m.rosters[code] = roster
	}

	return slices.Clone(roster), nil
}

func (m *memory) TransferLeadership(_ context.Context, code, playerID string) (chameleon.Roster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roster, err := m.rosters[code].TransferLeadership(playerID)
	if err != nil {
		return nil, err
	}
	m.rosters[code] = roster

	return slices.Clone(roster), nil
}

func (m *memory) Close() error {
	return nil
}

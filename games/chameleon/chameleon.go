/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package chameleon derives the grid, the secret and the chameleon for each
// round of a Chameleon session.
//
// Every round is reproducible from (code, round number, content pool,
// roster). Starting the next round means building a new state with the round
// number incremented.
package chameleon

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/seed"
)

const (
	// GridSize is the number of items shown to everyone each round.
	GridSize = 16

	// MinPlayers is the smallest roster a round can be started with.
	MinPlayers = 3

	// RoundSeedStride spaces the grid seeds of consecutive rounds apart.
	// Tunable, but changing it changes every previously dealt grid.
	RoundSeedStride = 1000

	// Index offsets for the secret and chameleon draws. They must differ
	// from each other so the two draws never share a PRNG input.
	secretOffset    = 500
	chameleonOffset = 999
)

var (
	ErrEmptyRoster      = errors.New("no players in roster")
	ErrWrongGridSize    = errors.New("wrong grid size")
	ErrNotEnoughPlayers = errors.New("not enough players")
)

type WrongGridSizeError struct {
	Got int
}

func (e *WrongGridSizeError) Error() string {
	return fmt.Sprintf("grid must have exactly %d items, got %d", GridSize, e.Got)
}

func (e *WrongGridSizeError) Is(target error) bool {
	return target == ErrWrongGridSize
}

type NotEnoughPlayersError struct {
	Have int
}

func (e *NotEnoughPlayersError) Error() string {
	return fmt.Sprintf("need at least %d players to start a round, have %d", MinPlayers, e.Have)
}

func (e *NotEnoughPlayersError) Is(target error) bool {
	return target == ErrNotEnoughPlayers
}

// RoundState is the persisted document for the current round of a session.
type RoundState struct {
	Code              string     `json:"code"`
	Mode              games.Mode `json:"mode"`
	Variant           string     `json:"variant"`
	RoundNumber       int        `json:"round_number"`
	GridItems         []string   `json:"grid_items"`
	SecretWord        string     `json:"secret_word"`
	ChameleonPlayerID string     `json:"chameleon_player_id"`
	LeaderPlayerID    string     `json:"leader_player_id"`
	Seed              int64      `json:"seed"`
}

// RoundSeed is the seed the grid for round is drawn with.
func RoundSeed(base int64, round int) int64 {
	return base + int64(round)*RoundSeedStride
}

// SelectGrid draws GridSize items from items for the given round.
func SelectGrid(items []string, base int64, round int) ([]string, error) {
	return seed.Select(items, RoundSeed(base, round), GridSize)
}

func SelectSecretWord(grid []string, base int64, round int) (string, error) {
	if len(grid) != GridSize {
		return "", &WrongGridSizeError{Got: len(grid)}
	}

	return grid[seed.Intn(base, int64(round+secretOffset), GridSize)], nil
}

// SelectChameleon picks one player in the order the roster is given.
func SelectChameleon(players []Player, base int64, round int) (string, error) {
	if len(players) == 0 {
		return "", ErrEmptyRoster
	}

	return players[seed.Intn(base, int64(round+chameleonOffset), len(players))].ID, nil
}

// NewRound deals round for code. The minimum roster size is the caller's to
// enforce; NewRound only refuses an empty roster.
func NewRound(code string, mode games.Mode, variant string, round int, items []string, players []Player, leaderID string) (RoundState, error) {
	if round < 1 {
		return RoundState{}, fmt.Errorf("round number must be at least 1, got %d", round)
	}

	base, err := seed.FromCode(code)
	if err != nil {
		return RoundState{}, err
	}

	grid, err := SelectGrid(items, base, round)
	if err != nil {
		return RoundState{}, err
	}

	secret, err := SelectSecretWord(grid, base, round)
	if err != nil {
		return RoundState{}, err
	}

	chameleon, err := SelectChameleon(players, base, round)
	if err != nil {
		return RoundState{}, err
	}

	return RoundState{
		Code:              code,
		Mode:              mode,
		Variant:           variant,
		RoundNumber:       round,
		GridItems:         grid,
		SecretWord:        secret,
		ChameleonPlayerID: chameleon,
		LeaderPlayerID:    leaderID,
		Seed:              base,
	}, nil
}

func (s RoundState) Matches(mode games.Mode, variant string) bool {
	return s.Mode == mode && s.Variant == variant
}

// SameRound compares the payload players see: round, grid, secret and
// chameleon.
func (s RoundState) SameRound(other RoundState) bool {
	return s.RoundNumber == other.RoundNumber &&
		s.SecretWord == other.SecretWord &&
		s.ChameleonPlayerID == other.ChameleonPlayerID &&
		s.LeaderPlayerID == other.LeaderPlayerID &&
		slices.Equal(s.GridItems, other.GridItems)
}

func (s RoundState) IsChameleon(playerID string) bool {
	return playerID != "" && s.ChameleonPlayerID == playerID
}

// Public is the round as anyone outside it may see it: no secret and no
// chameleon.
func (s RoundState) Public() RoundState {
	out := s
	out.GridItems = slices.Clone(s.GridItems)
	out.SecretWord = ""
	out.ChameleonPlayerID = ""

	return out
}

// PlayerView is what a single player is allowed to see of a round.
type PlayerView struct {
	Code        string     `json:"code"`
	Mode        games.Mode `json:"mode"`
	Variant     string     `json:"variant"`
	RoundNumber int        `json:"round_number"`
	GridItems   []string   `json:"grid_items"`
	SecretWord  string     `json:"secret_word,omitempty"`
	IsChameleon bool       `json:"is_chameleon"`
	IsLeader    bool       `json:"is_leader"`
}

// ViewFor hides the secret from the chameleon.
func (s RoundState) ViewFor(playerID string) PlayerView {
	v := PlayerView{
		Code:        s.Code,
		Mode:        s.Mode,
		Variant:     s.Variant,
		RoundNumber: s.RoundNumber,
		GridItems:   slices.Clone(s.GridItems),
		IsChameleon: s.IsChameleon(playerID),
		IsLeader:    playerID != "" && s.LeaderPlayerID == playerID,
	}

	if !v.IsChameleon {
		v.SecretWord = s.SecretWord
	}

	return v
}

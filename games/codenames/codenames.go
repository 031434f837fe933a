/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package codenames derives a Codenames board from a game code and applies
// the moves players make on it.
//
// A board is 25 cards: 9 red, 8 blue, 7 neutral and 1 assassin. The starting
// team is drawn separately and never changes the counts.
package codenames

import (
	"errors"
	"fmt"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/seed"
)

const (
	// BoardSize is the number of cards on a board.
	BoardSize = 25

	// startingTeamIndex sits well past the indices used by the key shuffle.
	startingTeamIndex = 999
)

type CardType string

const (
	Red      CardType = "red"
	Blue     CardType = "blue"
	Neutral  CardType = "neutral"
	Assassin CardType = "assassin"
)

// Composition is the fixed number of cards of each type on every board.
var Composition = map[CardType]int{
	Red:      9,
	Blue:     8,
	Neutral:  7,
	Assassin: 1,
}

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

var ErrWrongContentCount = errors.New("wrong number of cards")

type WrongContentCountError struct {
	Got int
}

func (e *WrongContentCountError) Error() string {
	return fmt.Sprintf("codenames needs exactly %d cards, got %d", BoardSize, e.Got)
}

func (e *WrongContentCountError) Is(target error) bool {
	return target == ErrWrongContentCount
}

// Card is one cell of the board. ID is the card's position in the content
// draw and never changes for the life of a game.
type Card struct {
	ID       int      `json:"id"`
	Content  string   `json:"content"`
	Type     CardType `json:"type"`
	Revealed bool     `json:"revealed"`
}

// GameState is the persisted document for one Codenames session.
type GameState struct {
	Code         string     `json:"code"`
	Mode         games.Mode `json:"mode"`
	Variant      string     `json:"variant"`
	Cards        []Card     `json:"cards"`
	StartingTeam Team       `json:"startingTeam"`
}

// GenerateKey lays out the reds, then blues, then neutrals, then the
// assassin, and shuffles that list with s.
func GenerateKey(s int64) []CardType {
	key := make([]CardType, 0, BoardSize)
	for _, t := range []CardType{Red, Blue, Neutral, Assassin} {
		for i := 0; i < Composition[t]; i++ {
			key = append(key, t)
		}
	}

	return seed.Shuffle(key, s)
}

func StartingTeam(s int64) Team {
	if seed.Next(s, startingTeamIndex) < 0.5 {
		return TeamRed
	}

	return TeamBlue
}

// New builds a fresh board for code from exactly 25 content items. Every
// card starts hidden.
func New(code string, mode games.Mode, variant string, contents []string) (GameState, error) {
	if len(contents) != BoardSize {
		return GameState{}, &WrongContentCountError{Got: len(contents)}
	}

	s, err := seed.FromCode(code)
	if err != nil {
		return GameState{}, err
	}

	key := GenerateKey(s)

	cards := make([]Card, BoardSize)
	for i, content := range contents {
		cards[i] = Card{
			ID:      i,
			Content: content,
			Type:    key[i],
		}
	}

	return GameState{
		Code:         code,
		Mode:         mode,
		Variant:      variant,
		Cards:        cards,
		StartingTeam: StartingTeam(s),
	}, nil
}

// Deal draws 25 items from pool using the code's seed and builds a board
// from them.
func Deal(code string, mode games.Mode, variant string, pool []string) (GameState, error) {
	s, err := seed.FromCode(code)
	if err != nil {
		return GameState{}, err
	}

	contents, err := seed.Select(pool, s, BoardSize)
	if err != nil {
		return GameState{}, err
	}

	return New(code, mode, variant, contents)
}

func (g GameState) clone() GameState {
	cards := make([]Card, len(g.Cards))
	copy(cards, g.Cards)
	g.Cards = cards

	return g
}

// Reveal returns a copy of g with card id turned over. Revealing an already
// revealed card, or an id that is not on the board, returns an equal state;
// the latter can happen when a reveal races a reset.
func (g GameState) Reveal(id int) GameState {
	out := g.clone()

	for i := range out.Cards {
		if out.Cards[i].ID == id {
			out.Cards[i].Revealed = true
			break
		}
	}

	return out
}

// ResetRevealed returns a copy of g with every card hidden again.
func (g GameState) ResetRevealed() GameState {
	out := g.clone()

	for i := range out.Cards {
		out.Cards[i].Revealed = false
	}

	return out
}

// Card looks up a card by id.
func (g GameState) Card(id int) (Card, bool) {
	for _, c := range g.Cards {
		if c.ID == id {
			return c, true
		}
	}

	return Card{}, false
}

// Remaining counts the hidden cards of each type.
func (g GameState) Remaining() map[CardType]int {
	out := map[CardType]int{
		Red:      0,
		Blue:     0,
		Neutral:  0,
		Assassin: 0,
	}

	for _, c := range g.Cards {
		if !c.Revealed {
			out[c.Type]++
		}
	}

	return out
}

// Finished reports whether the assassin is revealed or either team has no
// hidden cards left.
func (g GameState) Finished() bool {
	if len(g.Cards) == 0 {
		return false
	}

	left := g.Remaining()

	return left[Assassin] == 0 || left[Red] == 0 || left[Blue] == 0
}

// Masked is the table view: hidden cards lose their type, revealed cards
// keep it.
func (g GameState) Masked() GameState {
	out := g.clone()

	for i := range out.Cards {
		if !out.Cards[i].Revealed {
			out.Cards[i].Type = ""
		}
	}

	return out
}

// Matches reports whether g was built for the given mode and variant.
func (g GameState) Matches(mode games.Mode, variant string) bool {
	return g.Mode == mode && g.Variant == variant
}

// SameBoard compares the mutable payload of two states card by card.
func (g GameState) SameBoard(other GameState) bool {
	if g.StartingTeam != other.StartingTeam || len(g.Cards) != len(other.Cards) {
		return false
	}

	for i := range g.Cards {
		if g.Cards[i] != other.Cards[i] {
			return false
		}
	}

	return true
}

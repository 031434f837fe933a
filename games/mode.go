/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package games holds the types shared by every game in partyseed.
package games

import (
	"fmt"
	"strings"
)

// Mode selects how the content of a card or grid cell is interpreted by the
// renderer. The game logic never looks inside content, so a Mode is carried
// along as a tag only.
type Mode string

const (
	ModeWord  Mode = "word"
	ModeImage Mode = "image"
)

// ParseMode accepts "word" or "image" in any case. An empty string is
// treated as ModeWord.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeWord):
		return ModeWord, nil
	case string(ModeImage):
		return ModeImage, nil
	}

	return "", fmt.Errorf("unknown mode %q (must be %q or %q)", s, ModeWord, ModeImage)
}

func (m Mode) String() string {
	return string(m)
}

package codenames

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/seed"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("word%02d", i)
	}

	return out
}

func countTypes(key []CardType) map[CardType]int {
	out := make(map[CardType]int)
	for _, t := range key {
		out[t]++
	}

	return out
}

func TestGenerateKeyComposition(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []int64{0, 1, 7, 1234, 623698779, 2176782335} {
		key := GenerateKey(s)
		assert.Len(key, BoardSize)
		assert.Equal(Composition, countTypes(key), "seed %d", s)
	}
}

func TestKeyRegressionABC123(t *testing.T) {
	assert := assert.New(t)

	s, err := seed.FromCode("ABC123")
	require.NoError(t, err)

	want := []CardType{
		Red, Neutral, Blue, Neutral, Blue,
		Neutral, Red, Neutral, Blue, Red,
		Neutral, Red, Assassin, Neutral, Red,
		Red, Red, Blue, Blue, Red,
		Red, Blue, Blue, Blue, Neutral,
	}

	assert.Equal(want, GenerateKey(s))
	assert.Equal(TeamRed, StartingTeam(s))
}

func TestNewWithExactPool(t *testing.T) {
	assert := assert.New(t)

	pool := words(BoardSize)
	g, err := New("ABC123", games.ModeWord, "default", pool)
	require.NoError(t, err)

	assert.Equal("ABC123", g.Code)
	assert.Equal(games.ModeWord, g.Mode)
	assert.Equal("default", g.Variant)
	require.Len(t, g.Cards, BoardSize)

	seen := make(map[string]int)
	types := make([]CardType, 0, BoardSize)
	for i, c := range g.Cards {
		assert.Equal(i, c.ID)
		assert.False(c.Revealed)
		seen[c.Content]++
		types = append(types, c.Type)
	}

	for _, w := range pool {
		assert.Equal(1, seen[w], "word %q", w)
	}
	assert.Equal(Composition, countTypes(types))
}

func TestNewRejectsWrongCount(t *testing.T) {
	assert := assert.New(t)

	for _, n := range []int{0, 24, 26} {
		_, err := New("ABC123", games.ModeWord, "default", words(n))
		assert.ErrorIs(err, ErrWrongContentCount, "count %d", n)
	}
}

func TestNewRejectsBadCode(t *testing.T) {
	_, err := New("AB-123", games.ModeWord, "default", words(BoardSize))
	assert.ErrorIs(t, err, seed.ErrInvalidCode)
}

func TestDeal(t *testing.T) {
	assert := assert.New(t)

	pool := words(60)
	a, err := Deal("XY12ZZ", games.ModeImage, "animals", pool)
	require.NoError(t, err)
	b, err := Deal("XY12ZZ", games.ModeImage, "animals", pool)
	require.NoError(t, err)

	assert.Equal(a, b)
	for _, c := range a.Cards {
		assert.Contains(pool, c.Content)
	}

	_, err = Deal("XY12ZZ", games.ModeImage, "animals", words(24))
	assert.ErrorIs(err, seed.ErrInsufficientPool)
}

func TestRevealIsPureAndIdempotent(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)

	once := g.Reveal(3)
	twice := once.Reveal(3)

	assert.Equal(once, twice)
	assert.True(once.Cards[3].Revealed)
	assert.False(g.Cards[3].Revealed, "original state must not change")

	assert.Equal(g, g.Reveal(99), "unknown card is a no-op")
}

func TestResetRevealed(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)

	played := g.Reveal(0).Reveal(5).Reveal(12)
	assert.Equal(22, sum(played.Remaining()))

	reset := played.ResetRevealed()
	assert.Equal(Composition, reset.Remaining())
	assert.True(played.Cards[5].Revealed)
	assert.Equal(g, reset)
	assert.Equal(g.StartingTeam, reset.StartingTeam)
}

func sum(m map[CardType]int) int {
	n := 0
	for _, v := range m {
		n += v
	}

	return n
}

func TestFinished(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)
	assert.False(g.Finished())

	// ABC123 puts the assassin at position 12.
	assert.True(g.Reveal(12).Finished())

	blues := g
	for _, c := range g.Cards {
		if c.Type == Blue {
			blues = blues.Reveal(c.ID)
		}
	}
	assert.True(blues.Finished())
}

func TestMasked(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)

	m := g.Reveal(0).Masked()
	assert.Equal(Red, m.Cards[0].Type)
	for _, c := range m.Cards[1:] {
		assert.Empty(c.Type)
	}
	assert.NotEmpty(g.Cards[1].Type)
}

func TestSameBoardAndMatches(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)

	assert.True(g.SameBoard(g.Reveal(99)))
	assert.False(g.SameBoard(g.Reveal(1)))
	assert.True(g.Matches(games.ModeWord, "default"))
	assert.False(g.Matches(games.ModeImage, "default"))
	assert.False(g.Matches(games.ModeWord, "other"))
}

func TestJSONShapeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	g, err := New("ABC123", games.ModeWord, "default", words(BoardSize))
	require.NoError(t, err)
	g = g.Reveal(4)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"code", "mode", "variant", "cards", "startingTeam"} {
		assert.Contains(raw, k)
	}
	card := raw["cards"].([]any)[4].(map[string]any)
	assert.Equal(map[string]any{"id": 4.0, "content": "word04", "type": string(g.Cards[4].Type), "revealed": true}, card)

	var back GameState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(g, back)
}

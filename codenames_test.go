/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/codenames"
)

func TestStartCodenamesDealsFromCode(t *testing.T) {
	srv, st := newTestServer(t)
	c := newPlayer(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/codenames/ABC123/state", nil)
	assert.Equal(t, http.StatusNotFound, status, string(body))

	status, body = do(t, c, http.MethodPost, srv.URL+"/codenames/abc123/start", nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	dealt := decode[codenames.GameState](t, body)
	assert.Equal(t, "ABC123", dealt.Code)
	assert.Equal(t, games.ModeWord, dealt.Mode)
	assert.Equal(t, defaultVariant, dealt.Variant)
	assert.Len(t, dealt.Cards, codenames.BoardSize)

	pool, err := st.Pool(context.Background(), defaultVariant, games.ModeWord)
	require.NoError(t, err)

	want, err := codenames.Deal("ABC123", games.ModeWord, defaultVariant, pool)
	require.NoError(t, err)
	assert.Equal(t, want, dealt, "any client holding the code and list deals the same board")

	status, body = do(t, c, http.MethodGet, srv.URL+"/codenames/ABC123/state", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, dealt, decode[codenames.GameState](t, body))
}

func TestStartCodenamesAdoptsStoredBoard(t *testing.T) {
	srv, _ := newTestServer(t)
	first, second := newPlayer(t), newPlayer(t)

	_, body := do(t, first, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)
	dealt := decode[codenames.GameState](t, body)

	_, body = do(t, first, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/4", nil)
	revealed := decode[codenames.GameState](t, body)
	require.True(t, revealed.Cards[4].Revealed)

	status, body := do(t, second, http.MethodPost, srv.URL+"/codenames/ABC123/start?mode=word&variant=default", nil)
	require.Equal(t, http.StatusOK, status)

	adopted := decode[codenames.GameState](t, body)
	assert.True(t, adopted.SameBoard(revealed), "a matching stored board keeps its reveals")
	assert.False(t, adopted.SameBoard(dealt))
}

func TestStartCodenamesUnknownVariant(t *testing.T) {
	srv, _ := newTestServer(t)

	status, _ := do(t, newPlayer(t), http.MethodPost, srv.URL+"/codenames/ABC123/start?variant=missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, newPlayer(t), http.MethodPost, srv.URL+"/codenames/ABC123/start?mode=video", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRevealAndReset(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	status, _ := do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/0", nil)
	assert.Equal(t, http.StatusNotFound, status, "no board yet")

	do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)

	status, _ = do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/zero", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/12", nil)
	require.Equal(t, http.StatusOK, status)

	g := decode[codenames.GameState](t, body)
	assert.True(t, g.Cards[12].Revealed)
	assert.Equal(t, codenames.Assassin, g.Cards[12].Type)
	assert.True(t, g.Finished())

	status, body = do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/99", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[codenames.GameState](t, body).SameBoard(g), "unknown card ids change nothing")

	status, body = do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reset", nil)
	require.Equal(t, http.StatusOK, status)

	g = decode[codenames.GameState](t, body)
	assert.Equal(t, 0, countRevealed(g))
	assert.False(t, g.Finished())
}

func TestTableView(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)
	do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/0", nil)

	_, body := do(t, c, http.MethodGet, srv.URL+"/codenames/ABC123/state?view=table", nil)
	g := decode[codenames.GameState](t, body)

	assert.Equal(t, codenames.Red, g.Cards[0].Type)
	for _, card := range g.Cards[1:] {
		assert.Empty(t, card.Type)
		assert.NotEmpty(t, card.Content)
	}
}

func TestPutCodenamesState(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	_, body := do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)
	g := decode[codenames.GameState](t, body)

	other := g.Reveal(3).Reveal(7)
	status, _ := do(t, c, http.MethodPut, srv.URL+"/codenames/ABC123/state", other)
	require.Equal(t, http.StatusNoContent, status)

	_, body = do(t, c, http.MethodGet, srv.URL+"/codenames/ABC123/state", nil)
	assert.True(t, decode[codenames.GameState](t, body).SameBoard(other), "last write wins")

	wrongCode := g
	wrongCode.Code = "ZZZ999"
	status, _ = do(t, c, http.MethodPut, srv.URL+"/codenames/ABC123/state", wrongCode)
	assert.Equal(t, http.StatusBadRequest, status)

	short := g
	short.Cards = short.Cards[:24]
	status, _ = do(t, c, http.MethodPut, srv.URL+"/codenames/ABC123/state", short)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, c, http.MethodPut, srv.URL+"/codenames/ABC123/state", map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCodenamesWebsocket(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/codenames/ABC123/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	do(t, newPlayer(t), http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)

	msg := readState(t, conn)
	assert.Equal(t, "state", msg.Type)
	assert.Equal(t, gameCodenames, msg.Game)
	assert.Equal(t, "ABC123", msg.Code)

	do(t, newPlayer(t), http.MethodPost, srv.URL+"/codenames/ABC123/reveal/5", nil)

	// A poll that started before the reveal may push the older board first.
	for {
		var g codenames.GameState
		require.NoError(t, json.Unmarshal(readState(t, conn).State, &g))
		if g.Cards[5].Revealed {
			break
		}
	}
}

func TestCodenamesTableSocket(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/codenames/ABC123/ws?view=table"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var g codenames.GameState
	require.NoError(t, json.Unmarshal(readState(t, conn).State, &g))
	require.Len(t, g.Cards, codenames.BoardSize)
	for _, card := range g.Cards {
		assert.Empty(t, card.Type)
	}

	do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/reveal/0", nil)

	for {
		require.NoError(t, json.Unmarshal(readState(t, conn).State, &g))
		if g.Cards[0].Revealed {
			break
		}
	}

	assert.Equal(t, codenames.Red, g.Cards[0].Type)
	for _, card := range g.Cards[1:] {
		assert.Empty(t, card.Type)
	}
}

func readState(t *testing.T, conn *websocket.Conn) StateMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg StateMessage
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

func countRevealed(g codenames.GameState) int {
	n := 0
	for _, c := range g.Cards {
		if c.Revealed {
			n++
		}
	}

	return n
}

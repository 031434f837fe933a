/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/store"
)

func TestReaperClosesIdleHubs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	cfg.sessionTimeout = 40 * time.Millisecond

	gm := newGameManager(ctx, cfg, gameCodenames, store.Sessions(store.NewMemory(), gameCodenames))

	hub := gm.getHub("ABC123")
	assert.Same(t, hub, gm.getHub("ABC123"))

	assert.Eventually(t, func() bool {
		gm.mu.Lock()
		defer gm.mu.Unlock()

		return len(gm.hubs) == 0
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaped hub did not stop")
	}
}

func TestNewGameIDSkipsStoredCodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := store.Sessions(store.NewMemory(), gameChameleon)
	gm := newGameManager(ctx, testConfig(), gameChameleon, sessions)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := gm.newGameID(ctx)
		require.NoError(t, err)

		_, err = sessions.Load(ctx, code)
		assert.ErrorIs(t, err, reconcile.ErrNoState)

		require.NoError(t, sessions.Save(ctx, code, []byte(`{}`)))
		seen[code] = true
	}

	assert.Len(t, seen, 50)
}

func TestHubPushesStoreChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := store.Sessions(store.NewMemory(), gameCodenames)
	gm := newGameManager(ctx, testConfig(), gameCodenames, sessions)
	hub := gm.getHub("ABC123")

	c := &Client{send: make(chan []byte, 8)}
	hub.register <- c

	// A save that bypasses this server only reaches the hub through its poller.
	require.NoError(t, sessions.Save(ctx, "ABC123", []byte(`{"code":"ABC123"}`)))

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"type":"state","game":"codenames","code":"ABC123","state":{"code":"ABC123"}}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no push for an outside save")
	}

	hub.unreg <- c
}

func TestHubAppliesClientViews(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := store.Sessions(store.NewMemory(), gameCodenames)
	gm := newGameManager(ctx, testConfig(), gameCodenames, sessions)
	hub := gm.getHub("ABC123")

	type doc struct {
		Code   string `json:"code"`
		Secret string `json:"secret,omitempty"`
	}

	full := &Client{send: make(chan []byte, 8)}
	public := &Client{
		send: make(chan []byte, 8),
		view: project(func(d doc) doc {
			d.Secret = ""
			return d
		}),
	}

	hub.register <- full
	hub.register <- public

	require.NoError(t, sessions.Save(ctx, "ABC123", []byte(`{"code":"ABC123","secret":"owl"}`)))

	for c, want := range map[*Client]string{
		full:   `{"code":"ABC123","secret":"owl"}`,
		public: `{"code":"ABC123"}`,
	} {
		select {
		case msg := <-c.send:
			assert.JSONEq(t, `{"type":"state","game":"codenames","code":"ABC123","state":`+want+`}`, string(msg))
		case <-time.After(2 * time.Second):
			t.Fatal("no push for an outside save")
		}
	}

	hub.unreg <- full
	hub.unreg <- public
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/partyseed/lists"
	"github.com/Seednode/partyseed/store"
)

func testConfig() *Config {
	return &Config{
		pollInterval:   10 * time.Millisecond,
		sessionTimeout: time.Minute,
		logger:         zerolog.Nop(),
	}
}

// newTestServer serves a fresh in-memory store holding the built-in lists.
func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.NewMemory()
	_, err := lists.Load(ctx, st, "")
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(ctx, testConfig(), st, nil))
	t.Cleanup(srv.Close)

	return srv, st
}

// newPlayer returns a client that keeps its own partyseed_id cookie.
func newPlayer(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func do(t *testing.T, c *http.Client, method, url string, body any) (int, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))

	return v
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ok\n", string(body))

	status, body = do(t, c, http.MethodGet, srv.URL+"/version", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "partyseed v"+releaseVersion+"\n", string(body))

	status, body = do(t, c, http.MethodGet, srv.URL+"/robots.txt", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Disallow: /codenames/")

	status, body = do(t, c, http.MethodGet, srv.URL+"/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "/chameleon")
}

func TestLists(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/lists", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, decode[[]string](t, body), defaultVariant)

	status, body = do(t, c, http.MethodGet, srv.URL+"/lists?mode=image", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]string](t, body))

	status, body = do(t, c, http.MethodGet, srv.URL+"/lists/default", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Greater(t, len(decode[[]string](t, body)), 25)

	status, _ = do(t, c, http.MethodGet, srv.URL+"/lists/default?mode=video", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNewGameRedirect(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	for _, game := range []string{gameCodenames, gameChameleon} {
		resp, err := c.Get(srv.URL + "/" + game)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

		loc := resp.Header.Get("Location")
		require.True(t, strings.HasPrefix(loc, "/"+game+"/"), loc)
		assert.Regexp(t, `^[A-Z0-9]{6}$`, strings.TrimPrefix(loc, "/"+game+"/"))
	}
}

func TestSessionInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	status, body := do(t, c, http.MethodGet, srv.URL+"/codenames/abc123", nil)
	require.Equal(t, http.StatusOK, status)

	info := decode[SessionInfo](t, body)
	assert.Equal(t, "ABC123", info.Code)
	assert.Equal(t, "waiting", info.Status)
	assert.Equal(t, "/codenames/ABC123/ws", info.Socket)

	status, _ = do(t, c, http.MethodPost, srv.URL+"/codenames/ABC123/start", nil)
	require.Equal(t, http.StatusCreated, status)

	_, body = do(t, c, http.MethodGet, srv.URL+"/codenames/ABC123", nil)
	assert.Equal(t, store.StatusActive, decode[SessionInfo](t, body).Status)
}

func TestInvalidCode(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newPlayer(t)

	for _, path := range []string{
		"/codenames/ABC12/state",
		"/codenames/ABC-12/state",
		"/chameleon/TOOLONG1/state",
	} {
		status, body := do(t, c, http.MethodGet, srv.URL+path, nil)
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Contains(t, decode[errorMessage](t, body).Error, "invalid game code")
	}
}

func TestQRCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := newPlayer(t).Get(srv.URL + "/chameleon/ABC123/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errorStatus(store.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, errorStatus(errNotLeader))
	assert.Equal(t, http.StatusBadRequest, errorStatus(badRequest("nope")))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(io.ErrUnexpectedEOF))
}

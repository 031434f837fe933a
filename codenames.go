/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Codenames sessions
//
// The board is dealt from the game code, so every client that knows the code
// and the list agrees on words, colours and the starting team. The server
// only stores the current document and passes it around:
//
//   - POST /codenames/:code/start adopts the stored board if it was dealt for
//     the requested mode and variant, and deals (and stores) a new one
//     otherwise. Whoever gets there first decides the board.
//   - Reveals and resets load the board, apply the move, and store the whole
//     board again. Two players revealing at once can lose one reveal; the
//     last save wins.
//   - Clients converge by polling /state or by listening on /ws. Both show
//     the key to spymasters and, with ?view=table, only revealed cards to
//     everyone else.

package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/codenames"
	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/store"
)

const gameCodenames = "codenames"

func serveCodenamesState(cfg *Config, sessions reconcile.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		state, err := reconcile.Load[codenames.GameState](r.Context(), sessions, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		if state == nil {
			writeError(cfg, w, r, store.ErrNotFound, errs)
			return
		}

		if tableView(r) {
			writeJSON(cfg, w, r, http.StatusOK, state.Masked(), errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, state, errs)
	}
}

func tableView(r *http.Request) bool {
	return r.URL.Query().Get("view") == "table"
}

// codenamesViewer masks the key on sockets opened with ?view=table.
func codenamesViewer(r *http.Request, _ string) (viewFunc, error) {
	if !tableView(r) {
		return nil, nil
	}

	return project(func(g codenames.GameState) codenames.GameState {
		return g.Masked()
	}), nil
}

func validCodenamesState(code string, state codenames.GameState) error {
	if state.Code != code {
		return badRequest("state is for %q, not %q", state.Code, code)
	}
	if len(state.Cards) != codenames.BoardSize {
		return &codenames.WrongContentCountError{Got: len(state.Cards)}
	}
	if _, err := games.ParseMode(string(state.Mode)); err != nil || state.Mode == "" {
		return badRequest("invalid mode %q", state.Mode)
	}

	return nil
}

func saveCodenamesState(cfg *Config, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		var state codenames.GameState
		if err := readJSON(w, r, &state); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if err := validCodenamesState(code, state); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if err := saveState(r.Context(), sessions, gm, code, state); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// startCodenames applies the bootstrap rule on behalf of the client.
func startCodenames(cfg *Config, st store.Store, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		mode, variant, err := modeAndVariant(r, games.ModeWord, defaultVariant)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		ctx := r.Context()

		state, created, err := reconcile.Bootstrap(ctx, sessions, code,
			func(g codenames.GameState) bool {
				return g.Matches(mode, variant)
			},
			func() (codenames.GameState, error) {
				pool, err := st.Pool(ctx, variant, mode)
				if err != nil {
					return codenames.GameState{}, err
				}

				return codenames.Deal(code, mode, variant, pool)
			},
		)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
			notifySaved(gm, code, state)
			logf(cfg, "GAMES: Dealt %s board %q (%s) for %s, %s starts", mode, variant, gameCodenames, code, state.StartingTeam)
		}

		writeJSON(cfg, w, r, status, state, errs)
	}
}

func revealCard(cfg *Config, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		id, err := strconv.Atoi(ps.ByName("card"))
		if err != nil {
			writeError(cfg, w, r, badRequest("invalid card id %q", ps.ByName("card")), errs)
			return
		}

		state, err := transition(r.Context(), sessions, gm, code, func(g codenames.GameState) (codenames.GameState, error) {
			return g.Reveal(id), nil
		})
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if card, ok := state.Card(id); ok {
			logf(cfg, "GAMES: Revealed %s card %d (%s) in %s", card.Type, id, card.Content, code)
		}

		writeJSON(cfg, w, r, http.StatusOK, state, errs)
	}
}

func resetBoard(cfg *Config, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		state, err := transition(r.Context(), sessions, gm, code, func(g codenames.GameState) (codenames.GameState, error) {
			return g.ResetRevealed(), nil
		})
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		logf(cfg, "GAMES: Reset board in %s", code)

		writeJSON(cfg, w, r, http.StatusOK, state, errs)
	}
}

// registerCodenames sets up routes so that:
//   - /codenames                      → redirects to a new game code
//   - /codenames/:code                → session info
//   - /codenames/:code/state          → GET / PUT the stored board
//   - /codenames/:code/start          → adopt or deal a board
//   - /codenames/:code/reveal/:card   → reveal one card
//   - /codenames/:code/reset          → hide every card again
//   - /codenames/:code/ws             → websocket push of every change (?view=table masks)
//   - /codenames/:code/qr             → PNG QR code for the session URL
func registerCodenames(ctx context.Context, cfg *Config, st store.Store, errs chan<- error, mux *httprouter.Router) {
	sessions := store.Sessions(st, gameCodenames)
	gm := newGameManager(ctx, cfg, gameCodenames, reconcile.Shared(sessions))

	path := cfg.prefix + "/" + gameCodenames

	mux.GET(path, redirectNewGame(cfg, path, gm, errs))
	mux.GET(path+"/:code", serveSessionInfo(cfg, st, gameCodenames, path, errs))
	mux.GET(path+"/:code/state", serveCodenamesState(cfg, sessions, errs))
	mux.PUT(path+"/:code/state", saveCodenamesState(cfg, sessions, gm, errs))
	mux.POST(path+"/:code/start", startCodenames(cfg, st, sessions, gm, errs))
	mux.POST(path+"/:code/reveal/:card", revealCard(cfg, sessions, gm, errs))
	mux.POST(path+"/:code/reset", resetBoard(cfg, sessions, gm, errs))
	mux.GET(path+"/:code/ws", serveWS(cfg, gm, codenamesViewer, errs))
	mux.GET(path+"/:code/qr", qrHandler(cfg, errs))
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Chameleon sessions
//
// Players join with a name and are identified by the partyseed_id cookie.
// The first player in leads; when the leader leaves, the player who joined
// earliest takes over. Only the leader can start a round, and a round needs
// at least three players.
//
// Each round is dealt from (code, round number, list, roster), so the grid,
// the secret and the chameleon can be checked by anyone holding the same
// inputs. Before the first round there is no stored state and /state answers
// 404 with a "waiting" status.
//
// Only /view and /ws show the secret, and only to players in the roster who
// are not the chameleon. /state shows everyone the grid without the secret or
// the chameleon.

package main

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/chameleon"
	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/store"
)

const (
	gameChameleon = "chameleon"
	maxNameLength = 32
)

type joinRequest struct {
	Name string `json:"name"`
}

type waitingMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func joinChameleon(cfg *Config, st store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		var req joinRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		name := strings.TrimSpace(req.Name)
		switch {
		case name == "":
			writeError(cfg, w, r, badRequest("name is required"), errs)
			return
		case utf8.RuneCountInString(name) > maxNameLength:
			writeError(cfg, w, r, badRequest("name must be at most %d characters", maxNameLength), errs)
			return
		}

		id := getOrSetPlayerID(w, r)

		player, err := st.Join(r.Context(), code, id, name)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		logf(cfg, "GAMES: %s joined %s as #%d", player.Name, code, player.JoinOrder)

		writeJSON(cfg, w, r, http.StatusOK, player, errs)
	}
}

func leaveChameleon(cfg *Config, st store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		roster, err := st.Leave(r.Context(), code, playerID(r))
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if leader, ok := roster.Leader(); ok {
			logf(cfg, "GAMES: Player left %s, %s leads", code, leader.Name)
		} else {
			logf(cfg, "GAMES: Last player left %s", code)
		}

		writeJSON(cfg, w, r, http.StatusOK, nonNil(roster), errs)
	}
}

func servePlayers(cfg *Config, st store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		roster, err := st.Roster(r.Context(), code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, nonNil(roster), errs)
	}
}

// requireLeader returns the roster of code if the requesting player leads it.
func requireLeader(ctx context.Context, st store.Store, r *http.Request, code string) (chameleon.Roster, error) {
	roster, err := st.Roster(ctx, code)
	if err != nil {
		return nil, err
	}

	leader, ok := roster.Leader()
	if !ok || leader.ID != playerID(r) {
		return nil, errNotLeader
	}

	return roster, nil
}

func transferLeader(cfg *Config, st store.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		if _, err := requireLeader(r.Context(), st, r, code); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		roster, err := st.TransferLeadership(r.Context(), code, ps.ByName("player"))
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, roster, errs)
	}
}

// startRound deals the next round for the current roster. Mode and variant
// default to those of the previous round.
func startRound(cfg *Config, st store.Store, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		ctx := r.Context()

		roster, err := requireLeader(ctx, st, r, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if err := roster.CanStart(); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		previous, err := reconcile.Load[chameleon.RoundState](ctx, sessions, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		round, mode, variant := 1, games.ModeWord, defaultVariant
		if previous != nil {
			round = previous.RoundNumber + 1
			mode, variant = previous.Mode, previous.Variant
		}

		mode, variant, err = modeAndVariant(r, mode, variant)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		pool, err := st.Pool(ctx, variant, mode)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		leader, _ := roster.Leader()

		state, err := chameleon.NewRound(code, mode, variant, round, pool, roster, leader.ID)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if err := saveState(ctx, sessions, gm, code, state); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		logf(cfg, "GAMES: Dealt round %d of %s (%s %q) for %d players", round, code, mode, variant, len(roster))

		writeJSON(cfg, w, r, http.StatusCreated, state.ViewFor(leader.ID), errs)
	}
}

func serveChameleonState(cfg *Config, sessions reconcile.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		state, err := reconcile.Load[chameleon.RoundState](r.Context(), sessions, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		if state == nil {
			writeJSON(cfg, w, r, http.StatusNotFound, waitingMessage{
				Status:  "waiting",
				Message: "waiting for the leader to start a round",
			}, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, state.Public(), errs)
	}
}

func validRoundState(code string, roster chameleon.Roster, state chameleon.RoundState) error {
	if state.Code != code {
		return badRequest("state is for %q, not %q", state.Code, code)
	}
	if state.RoundNumber < 1 {
		return badRequest("invalid round number %d", state.RoundNumber)
	}
	if len(state.GridItems) != chameleon.GridSize {
		return &chameleon.WrongGridSizeError{Got: len(state.GridItems)}
	}
	if !slices.Contains(state.GridItems, state.SecretWord) {
		return badRequest("secret word %q is not on the grid", state.SecretWord)
	}
	if _, ok := roster.Find(state.ChameleonPlayerID); !ok {
		return badRequest("chameleon %q is not in the session", state.ChameleonPlayerID)
	}
	if _, ok := roster.Find(state.LeaderPlayerID); !ok {
		return badRequest("leader %q is not in the session", state.LeaderPlayerID)
	}

	return nil
}

func saveChameleonState(cfg *Config, st store.Store, sessions reconcile.Store, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		var state chameleon.RoundState
		if err := readJSON(w, r, &state); err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		roster, err := st.Roster(r.Context(), code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		if err := validRoundState(code, roster, state); err != nil {
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

// servePlayerView shows the requesting player their part of the round.
func servePlayerView(cfg *Config, st store.Store, sessions reconcile.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		ctx := r.Context()

		id, err := rosterMember(ctx, st, r, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		state, err := reconcile.Load[chameleon.RoundState](ctx, sessions, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		if state == nil {
			writeJSON(cfg, w, r, http.StatusNotFound, waitingMessage{
				Status:  "waiting",
				Message: "waiting for the leader to start a round",
			}, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, state.ViewFor(id), errs)
	}
}

// rosterMember returns the requesting player's id if they are in the roster
// of code.
func rosterMember(ctx context.Context, st store.Store, r *http.Request, code string) (string, error) {
	roster, err := st.Roster(ctx, code)
	if err != nil {
		return "", err
	}

	id := playerID(r)
	if _, ok := roster.Find(id); !ok {
		return "", chameleon.ErrPlayerNotFound
	}

	return id, nil
}

// chameleonViewer limits sockets to players in the roster and pushes each of
// them their own view.
func chameleonViewer(st store.Store) viewerFunc {
	return func(r *http.Request, code string) (viewFunc, error) {
		id, err := rosterMember(r.Context(), st, r, code)
		if err != nil {
			return nil, err
		}

		return project(func(s chameleon.RoundState) chameleon.PlayerView {
			return s.ViewFor(id)
		}), nil
	}
}

func nonNil(roster chameleon.Roster) chameleon.Roster {
	if roster == nil {
		return chameleon.Roster{}
	}

	return roster
}

// registerChameleon sets up routes so that:
//   - /chameleon                         → redirects to a new game code
//   - /chameleon/:code                   → session info
//   - /chameleon/:code/join              → join or rename
//   - /chameleon/:code/leave             → leave, handing over leadership
//   - /chameleon/:code/players           → roster in join order
//   - /chameleon/:code/leader/:player    → leader hands over leadership
//   - /chameleon/:code/round             → leader deals the next round
//   - /chameleon/:code/state             → GET the public round / PUT a round
//   - /chameleon/:code/view              → the requesting player's view
//   - /chameleon/:code/ws                → websocket push of the player's view
//   - /chameleon/:code/qr                → PNG QR code for the session URL
func registerChameleon(ctx context.Context, cfg *Config, st store.Store, errs chan<- error, mux *httprouter.Router) {
	sessions := store.Sessions(st, gameChameleon)
	gm := newGameManager(ctx, cfg, gameChameleon, reconcile.Shared(sessions))

	path := cfg.prefix + "/" + gameChameleon

	mux.GET(path, redirectNewGame(cfg, path, gm, errs))
	mux.GET(path+"/:code", serveSessionInfo(cfg, st, gameChameleon, path, errs))
	mux.POST(path+"/:code/join", joinChameleon(cfg, st, errs))
	mux.POST(path+"/:code/leave", leaveChameleon(cfg, st, errs))
	mux.GET(path+"/:code/players", servePlayers(cfg, st, errs))
	mux.POST(path+"/:code/leader/:player", transferLeader(cfg, st, errs))
	mux.POST(path+"/:code/round", startRound(cfg, st, sessions, gm, errs))
	mux.GET(path+"/:code/state", serveChameleonState(cfg, sessions, errs))
	mux.PUT(path+"/:code/state", saveChameleonState(cfg, st, sessions, gm, errs))
	mux.GET(path+"/:code/view", servePlayerView(cfg, st, sessions, errs))
	mux.GET(path+"/:code/ws", serveWS(cfg, gm, chameleonViewer(st), errs))
	mux.GET(path+"/:code/qr", qrHandler(cfg, errs))
}

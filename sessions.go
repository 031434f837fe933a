/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/games/seed"
	"github.com/Seednode/partyseed/store"
)

const (
	playerCookieName = "partyseed_id"
	defaultVariant   = "default"
	qrSize           = 320
)

// codeParam reads :code, upper-casing it, and rejects anything that is not a
// valid game code.
func codeParam(cfg *Config, w http.ResponseWriter, r *http.Request, ps httprouter.Params) (string, bool) {
	code := strings.ToUpper(ps.ByName("code"))
	if !seed.ValidCode(code) {
		writeError(cfg, w, r, badRequest("invalid game code %q", ps.ByName("code")), nil)
		return "", false
	}

	return code, true
}

// modeAndVariant reads ?mode= and ?variant=, falling back to fallbackMode and
// fallbackVariant when absent.
func modeAndVariant(r *http.Request, fallbackMode games.Mode, fallbackVariant string) (games.Mode, string, error) {
	q := r.URL.Query()

	mode := fallbackMode
	if s := q.Get("mode"); s != "" {
		m, err := games.ParseMode(s)
		if err != nil {
			return "", "", badRequest("%v", err)
		}
		mode = m
	}

	variant := fallbackVariant
	if s := strings.TrimSpace(q.Get("variant")); s != "" {
		variant = s
	}

	return mode, variant, nil
}

func playerID(r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	return ""
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if id := playerID(r); id != "" {
		return id
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// saveState persists state for code and tells the session's hub about it.
func saveState[T any](ctx context.Context, sessions reconcile.Store, gm *GameManager, code string, state T) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return err
	}

	if err := sessions.Save(ctx, code, doc); err != nil {
		return err
	}

	gm.notify(code, doc)

	return nil
}

// notifySaved pushes a state that is already stored to the session's hub.
func notifySaved[T any](gm *GameManager, code string, state T) {
	if doc, err := json.Marshal(state); err == nil {
		gm.notify(code, doc)
	}
}

// transition loads the state for code, applies fn and saves the result. When
// the load or save fails, nothing is committed and the error is returned for
// the client to retry.
func transition[T any](ctx context.Context, sessions reconcile.Store, gm *GameManager, code string, fn func(T) (T, error)) (T, error) {
	var zero T

	current, err := reconcile.Load[T](ctx, sessions, code)
	if err != nil {
		return zero, err
	}
	if current == nil {
		return zero, store.ErrNotFound
	}

	next, err := fn(*current)
	if err != nil {
		return zero, err
	}

	if err := saveState(ctx, sessions, gm, code, next); err != nil {
		return zero, err
	}

	return next, nil
}

// SessionInfo points a client at the endpoints of one session.
type SessionInfo struct {
	Game   string `json:"game"`
	Code   string `json:"code"`
	Status string `json:"status"`
	State  string `json:"state"`
	Socket string `json:"ws"`
	QR     string `json:"qr"`
}

func serveSessionInfo(cfg *Config, st store.Store, game, path string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		status, err := st.Status(r.Context(), game, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		if status == "" {
			status = "waiting"
		}

		base := path + "/" + code
		writeJSON(cfg, w, r, http.StatusOK, SessionInfo{
			Game:   game,
			Code:   code,
			Status: status,
			State:  base + "/state",
			Socket: base + "/ws",
			QR:     base + "/qr",
		}, errs)
	}
}

// redirectNewGame handles GET /path by generating a new game code (with
// server-side collision detection) and redirecting to /path/:code.
func redirectNewGame(cfg *Config, path string, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code, err := gm.newGameID(r.Context())
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		logf(cfg, "GAMES: Created game %s/%s", path, code)
		http.Redirect(w, r, path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// qrHandler generates a PNG QR code pointing at the session URL.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := codeParam(cfg, w, r, ps); !ok {
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			reportError(errs, err)
		}
	}
}

func registerLists(cfg *Config, st store.Store, errs chan<- error, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/lists", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		mode, _, err := modeAndVariant(r, games.ModeWord, "")
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		variants, err := st.Variants(r.Context(), mode)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}
		if variants == nil {
			variants = []string{}
		}

		writeJSON(cfg, w, r, http.StatusOK, variants, errs)
	})

	mux.GET(cfg.prefix+"/lists/:variant", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		mode, _, err := modeAndVariant(r, games.ModeWord, "")
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		items, err := st.Pool(r.Context(), ps.ByName("variant"), mode)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		writeJSON(cfg, w, r, http.StatusOK, items, errs)
	})
}

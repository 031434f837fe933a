/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Seednode/partyseed/games/chameleon"
	"github.com/Seednode/partyseed/games/codenames"
	"github.com/Seednode/partyseed/games/seed"
	"github.com/Seednode/partyseed/store"
)

var (
	errBadRequest = errors.New("bad request")
	errNotLeader  = errors.New("only the session leader can do that")
)

func newLogger(cfg *Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	if cfg.logJSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: logDate,
		NoColor:    true,
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	cfg.logger.Info().Msgf(format, args...)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// errorStatus maps an error to the status code reported to clients.
// Validation failures are the caller's fault; anything unrecognised is
// treated as a transient server error the client may retry.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, chameleon.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNotLeader):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, seed.ErrInvalidCode),
		errors.Is(err, seed.ErrInsufficientPool),
		errors.Is(err, codenames.ErrWrongContentCount),
		errors.Is(err, chameleon.ErrWrongGridSize),
		errors.Is(err, chameleon.ErrEmptyRoster),
		errors.Is(err, chameleon.ErrNotEnoughPlayers):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

type errorMessage struct {
	Error string `json:"error"`
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, err error, errs chan<- error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		cfg.logger.Error().Err(err).Str("path", r.URL.Path).Str("client", realIP(r)).Msg("request failed")
	}

	writeJSON(cfg, w, r, status, errorMessage{Error: err.Error()}, errs)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta name="theme-color" content="#ffffff">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}

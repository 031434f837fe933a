/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/partyseed/games/chameleon"
	"github.com/Seednode/partyseed/games/codenames"
	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/games/seed"
)

type watchOptions struct {
	server string
	game   string
}

func newWatchCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch CODE",
		Short: "Follow a session on a running server and print every change.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(args[0])
			if !seed.ValidCode(code) {
				return fmt.Errorf("%w: %q", seed.ErrInvalidCode, args[0])
			}

			base := strings.TrimSuffix(opts.server, "/") + "/" + opts.game
			st := reconcile.Shared(reconcile.NewHTTPStore(base, &http.Client{Timeout: reconcile.DefaultTimeout}))

			switch opts.game {
			case gameCodenames:
				return watchSession(cmd.Context(), cfg, cmd.OutOrStdout(), st, code, codenames.GameState.SameBoard, describeBoard)
			case gameChameleon:
				return watchSession(cmd.Context(), cfg, cmd.OutOrStdout(), st, code, chameleon.RoundState.SameRound, describeRound)
			default:
				return fmt.Errorf("unknown game %q (want %s or %s)", opts.game, gameCodenames, gameChameleon)
			}
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.server, "server", "http://localhost:8080", "base URL of the partyseed server, including any prefix (env: PARTYSEED_SERVER)")
	fs.StringVar(&opts.game, "game", gameCodenames, "game to follow, codenames or chameleon (env: PARTYSEED_GAME)")

	bindFlags(v, fs)

	return cmd
}

// watchSession prints the current state of code, then every change, until ctx
// is done. A failed first load is retried by the poller.
func watchSession[T any](ctx context.Context, cfg *Config, out io.Writer, st reconcile.Store, code string, equal func(a, b T) bool, describe func(T) string) error {
	poller := reconcile.NewPoller(st, code, reconcile.PollerConfig[T]{
		Interval: cfg.pollInterval,
		Equal:    equal,
		Logger:   &cfg.logger,
	})

	current, err := reconcile.Load[T](ctx, st, code)
	switch {
	case err != nil:
		cfg.logger.Warn().Err(err).Str("code", code).Msg("initial load failed")
	case current == nil:
		cfg.logger.Warn().Str("code", code).Msg("waiting for game to start")
	default:
		poller.Set(*current)
		fmt.Fprintln(out, describe(*current))
	}

	var w reconcile.Watcher[T] = poller

	return w.Watch(ctx, func(state T) {
		fmt.Fprintln(out, describe(state))
	})
}

func describeBoard(g codenames.GameState) string {
	left := g.Remaining()

	status := "in play"
	if g.Finished() {
		status = "finished"
	}

	return fmt.Sprintf("%s: %s starts, red %d, blue %d, neutral %d, assassin %d left (%s)",
		g.Code, g.StartingTeam, left[codenames.Red], left[codenames.Blue], left[codenames.Neutral], left[codenames.Assassin], status)
}

func describeRound(s chameleon.RoundState) string {
	return fmt.Sprintf("%s: round %d (%s %q): %s",
		s.Code, s.RoundNumber, s.Mode, s.Variant, strings.Join(s.GridItems, ", "))
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Seednode/partyseed/games"
	"github.com/Seednode/partyseed/games/chameleon"
)

//go:embed migrations/*.sql
var migrations embed.FS

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies any
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, so roster
	// read-modify-write cycles never interleave.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// migrate runs every embedded migration not yet recorded in _migrations, in
// lexical order, each in its own transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		name := filepath.Base(f)

		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM _migrations WHERE name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}

		body, err := migrations.ReadFile(f)
		if err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations (name) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func (s *sqliteStore) LoadState(ctx context.Context, game, code string) ([]byte, error) {
	var state sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE game = ? AND code = ?`, game, code,
	).Scan(&state)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	case !state.Valid:
		return nil, ErrNotFound
	}

	return []byte(state.String), nil
}

func (s *sqliteStore) SaveState(ctx context.Context, game, code string, doc []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (game, code, state, status, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (game, code) DO UPDATE SET
		   state = excluded.state,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		game, code, string(doc), StatusActive, time.Now().UTC(),
	)

	return err
}

func (s *sqliteStore) Status(ctx context.Context, game, code string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM sessions WHERE game = ? AND code = ?`, game, code,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return status, err
}

func (s *sqliteStore) Pool(ctx context.Context, variant string, mode games.Mode) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item FROM lists WHERE variant = ? AND mode = ? ORDER BY position`, variant, string(mode),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}

	return out, nil
}

func (s *sqliteStore) PutPool(ctx context.Context, variant string, mode games.Mode, items []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE variant = ? AND mode = ?`, variant, string(mode)); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lists (variant, mode, position, item) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		if _, err := stmt.ExecContext(ctx, variant, string(mode), i, item); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) Variants(ctx context.Context, mode games.Mode) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT variant FROM lists WHERE mode = ? ORDER BY variant`, string(mode),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRoster(ctx context.Context, q querier, code string) (chameleon.Roster, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, join_order, is_leader FROM players WHERE code = ? ORDER BY join_order`, code,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out chameleon.Roster
	for rows.Next() {
		var p chameleon.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.JoinOrder, &p.IsLeader); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (s *sqliteStore) Roster(ctx context.Context, code string) (chameleon.Roster, error) {
	return loadRoster(ctx, s.db, code)
}

// updateRoster loads the roster for code, applies fn and writes the result
// back, all in one transaction.
func (s *sqliteStore) updateRoster(ctx context.Context, code string, fn func(chameleon.Roster) (chameleon.Roster, error)) (chameleon.Roster, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	roster, err := loadRoster(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	roster, err = fn(roster)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE code = ?`, code); err != nil {
		return nil, err
	}

	for _, p := range roster {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO players (code, id, name, join_order, is_leader) VALUES (?, ?, ?, ?, ?)`,
			code, p.ID, p.Name, p.JoinOrder, p.IsLeader,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return roster, nil
}

func (s *sqliteStore) Join(ctx context.Context, code, playerID, name string) (chameleon.Player, error) {
	var joined chameleon.Player

	_, err := s.updateRoster(ctx, code, func(r chameleon.Roster) (chameleon.Roster, error) {
		var out chameleon.Roster
		out, joined = r.Join(playerID, name)

		return out, nil
	})

	return joined, err
}

func (s *sqliteStore) Leave(ctx context.Context, code, playerID string) (chameleon.Roster, error) {
	return s.updateRoster(ctx, code, func(r chameleon.Roster) (chameleon.Roster, error) {
		return r.Leave(playerID)
	})
}

func (s *sqliteStore) TransferLeadership(ctx context.Context, code, playerID string) (chameleon.Roster, error) {
	return s.updateRoster(ctx, code, func(r chameleon.Roster) (chameleon.Roster, error) {
		return r.TransferLeadership(playerID)
	})
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

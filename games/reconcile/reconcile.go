/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package reconcile keeps every client's copy of a game state in step with
// the copy held by a shared store.
//
// There are no locks and no versions: a save overwrites the whole document
// and the last writer wins. Two clients bootstrapping the same code at the
// same moment can both create a state; the second save is the one everybody
// converges on. Two reveals from stale copies can likewise undo each other.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 5 * time.Second
)

var ErrNoState = errors.New("no state stored for code")

// Store holds one JSON document per game code. Load returns ErrNoState when
// nothing has been saved for code.
type Store interface {
	Load(ctx context.Context, code string) ([]byte, error)
	Save(ctx context.Context, code string, doc []byte) error
}

// Watcher delivers every state that differs from the last one delivered.
// Poller is the polling implementation; a push channel can stand in for it.
type Watcher[T any] interface {
	Watch(ctx context.Context, onChange func(T)) error
}

// Load fetches and decodes the state for code. A missing or empty document
// yields nil with no error.
func Load[T any](ctx context.Context, st Store, code string) (*T, error) {
	doc, err := st.Load(ctx, code)
	switch {
	case errors.Is(err, ErrNoState):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if len(doc) == 0 || string(doc) == "null" {
		return nil, nil
	}

	var state T
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", code, err)
	}

	return &state, nil
}

// Save overwrites the state for code.
func Save[T any](ctx context.Context, st Store, code string, state T) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", code, err)
	}

	return st.Save(ctx, code, doc)
}

// Bootstrap adopts the stored state when accept approves of it, and
// otherwise creates and saves a new one. created reports which happened.
func Bootstrap[T any](ctx context.Context, st Store, code string, accept func(T) bool, create func() (T, error)) (state T, created bool, err error) {
	existing, err := Load[T](ctx, st, code)
	if err != nil {
		return state, false, err
	}

	if existing != nil && accept(*existing) {
		return *existing, false, nil
	}

	state, err = create()
	if err != nil {
		return state, false, err
	}

	if err := Save(ctx, st, code, state); err != nil {
		return state, false, err
	}

	return state, true, nil
}

// PollerConfig tunes a Poller. Zero values fall back to the defaults.
type PollerConfig[T any] struct {
	Interval time.Duration
	Timeout  time.Duration

	// Equal decides whether a fetched state differs from the local one.
	// Defaults to reflect.DeepEqual.
	Equal func(a, b T) bool

	Logger *zerolog.Logger
}

// Poller re-reads one code from a store on a fixed interval and reports
// every state that differs from its local copy.
//
// At most one fetch is in flight at a time; a tick that fires while a fetch
// is still running is skipped. Failed fetches are logged and retried on the
// next tick.
type Poller[T any] struct {
	store    Store
	code     string
	interval time.Duration
	timeout  time.Duration
	equal    func(a, b T) bool
	logger   zerolog.Logger

	inflight atomic.Bool

	mu       sync.Mutex
	current  T
	has      bool
	onChange func(T)
}

func NewPoller[T any](st Store, code string, cfg PollerConfig[T]) *Poller[T] {
	p := &Poller[T]{
		store:    st,
		code:     code,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		equal:    cfg.Equal,
		logger:   zerolog.Nop(),
	}

	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.equal == nil {
		p.equal = func(a, b T) bool {
			return reflect.DeepEqual(a, b)
		}
	}
	if cfg.Logger != nil {
		p.logger = cfg.Logger.With().Str("code", code).Logger()
	}

	return p
}

// Set replaces the local copy, typically after this client saved a state of
// its own, so the next poll does not report it back as a change.
func (p *Poller[T]) Set(state T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = state
	p.has = true
}

func (p *Poller[T]) snapshot() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current, p.has
}

// Watch polls until ctx is done. Results that arrive after that are dropped.
func (p *Poller[T]) Watch(ctx context.Context, onChange func(T)) error {
	p.mu.Lock()
	p.onChange = onChange
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller[T]) tick(ctx context.Context) {
	if !p.inflight.CompareAndSwap(false, true) {
		p.logger.Debug().Msg("previous poll still in flight, skipping tick")

		return
	}

	go func() {
		defer p.inflight.Store(false)

		p.poll(ctx)
	}()
}

// poll performs one fetch and reports whether the local copy changed.
func (p *Poller[T]) poll(ctx context.Context) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	next, err := Load[T](fetchCtx, p.store, p.code)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Msg("poll failed")
		}

		return false
	}

	if next == nil {
		return false
	}

	p.mu.Lock()
	if ctx.Err() != nil || (p.has && p.equal(p.current, *next)) {
		p.mu.Unlock()

		return false
	}
	p.current = *next
	p.has = true
	notify := p.onChange
	p.mu.Unlock()

	p.logger.Debug().Msg("adopted newer state")

	if notify != nil {
		notify(*next)
	}

	return true
}

type shared struct {
	Store
	group singleflight.Group
}

// Shared collapses concurrent loads of the same code into one call to st.
func Shared(st Store) Store {
	return &shared{Store: st}
}

func (s *shared) Load(ctx context.Context, code string) ([]byte, error) {
	v, err, _ := s.group.Do(code, func() (any, error) {
		return s.Store.Load(ctx, code)
	})
	if err != nil {
		return nil, err
	}

	doc, _ := v.([]byte)

	return append([]byte(nil), doc...), nil
}

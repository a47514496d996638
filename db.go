// db.go
//
// Session store selection for the server binary.
//   - STORE=memory keeps sessions in process memory only.
//   - STORE=sqlite opens DB_PATH, applies the embedded migrations and writes a
//     round snapshot on every change (requests and timers alike), so boards
//     survive a restart.
//
// A background sweeper drops sessions idle for longer than SESSION_TTL.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/assets"
	"github.com/robalobadob/flipcard/internal/config"
	"github.com/robalobadob/flipcard/internal/session"
	"github.com/robalobadob/flipcard/internal/store"
)

// openStore builds the configured Store and a func releasing its resources.
func openStore(cfg config.Config, f *session.Factory) (store.Store, func(), error) {
	if cfg.Store != config.StoreSQLite {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
	st := store.NewSQLiteStore(db, f)
	store.SaveOnChange(f, st)
	return st, closeDB, nil
}

// sweep removes idle sessions every interval until ctx is done.
func sweep(ctx context.Context, st store.Store, ttl, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := st.Sweep(ctx, now.Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("sweep sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("swept idle sessions")
			}
		}
	}
}

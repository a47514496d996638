// internal/store/sqlite.go
//
// SQLite-backed Store.
// Live sessions are kept in memory (their controllers own running timers);
// every Save also writes the session's round snapshot to the sessions table so
// a restarted server can rebuild the board on the next Get. SaveOnChange
// hooks a Factory up so timer-driven changes are written too.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/game"
	"github.com/robalobadob/flipcard/internal/session"
)

// timeLayout is fixed-width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type sqliteStore struct {
	db      *sql.DB
	factory *session.Factory

	// saveMu keeps snapshot capture and write together, so a request and a
	// timer saving the same session cannot store an older round last.
	saveMu sync.Mutex

	mu   sync.Mutex
	live map[string]*session.Session
}

// NewSQLiteStore returns a Store persisting snapshots to db. The sessions
// table must exist (see Migrate).
func NewSQLiteStore(db *sql.DB, f *session.Factory) Store {
	return &sqliteStore{db: db, factory: f, live: make(map[string]*session.Session)}
}

func (s *sqliteStore) Save(ctx context.Context, sess *session.Session) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	rec := sess.Record()
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO sessions (id, snapshot, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET snapshot=excluded.snapshot, updated_at=excluded.updated_at`,
		rec.ID, string(snap), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	s.live[sess.ID] = sess
	s.mu.Unlock()
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.live[id]; ok {
		return sess, nil
	}

	var snap, created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot, created_at, updated_at FROM sessions WHERE id=?`, id,
	).Scan(&snap, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	rec := session.Record{ID: id, CreatedAt: parseTime(created), UpdatedAt: parseTime(updated)}
	var gs game.Snapshot
	if err := json.Unmarshal([]byte(snap), &gs); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	rec.Snapshot = gs

	sess, err := s.factory.Restore(rec)
	if err != nil {
		return nil, err
	}
	s.live[id] = sess
	log.Info().Str("session", id).Msg("session restored from snapshot")
	return sess, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	return nil
}

func (s *sqliteStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, _ := res.RowsAffected()

	s.mu.Lock()
	for id, sess := range s.live {
		if sess.UpdatedAt().Before(cutoff) {
			delete(s.live, id)
		}
	}
	s.mu.Unlock()
	return int(n), nil
}

// SaveOnChange makes st persist every session f builds whenever a timer
// changes its round. Failures are logged.
func SaveOnChange(f *session.Factory, st Store) {
	f.OnChange = func(sess *session.Session) {
		if err := st.Save(context.Background(), sess); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("save after timer")
		}
	}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// parseTime parses stored timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// Package audit keeps a queryable SQLite index of finished edit sessions.
//
// The journal stays the source of truth; the index is written asynchronously
// and drops records rather than stall the tick loop.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/resizer/internal/session"
)

const maxBatch = 256

// timeLayout has a fixed width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Index is an async SQLite writer of session records.
type Index struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan session.Record
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
	written atomic.Uint64
}

// Open opens or creates the index database at path.
func Open(path string, log *zap.Logger) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{db: db, log: log, ch: make(chan session.Record, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS edits (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			dimension TEXT NOT NULL,
			activation TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			mode TEXT NOT NULL,
			material TEXT,
			cleared INTEGER NOT NULL,
			min_x INTEGER NOT NULL, min_y INTEGER NOT NULL, min_z INTEGER NOT NULL,
			max_x INTEGER NOT NULL, max_y INTEGER NOT NULL, max_z INTEGER NOT NULL,
			volume INTEGER NOT NULL,
			error TEXT,
			ticks INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_player_time ON edits(player, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_outcome ON edits(outcome);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes queued records and closes the database.
func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record implements session.Recorder. It never blocks.
func (s *Index) Record(r session.Record) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many records were discarded because the writer fell
// behind.
func (s *Index) Dropped() uint64 { return s.dropped.Load() }

// Written returns how many records have been committed.
func (s *Index) Written() uint64 { return s.written.Load() }

func (s *Index) loop() {
	for r := range s.ch {
		batch := []session.Record{r}
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		if err := s.insert(batch); err != nil {
			s.log.Error("audit insert failed", zap.Int("records", len(batch)), zap.Error(err))
			continue
		}
		s.written.Add(uint64(len(batch)))
	}
}

func (s *Index) insert(batch []session.Record) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO edits(
		id,player,dimension,activation,outcome,reason,mode,material,cleared,
		min_x,min_y,min_z,max_x,max_y,max_z,volume,error,ticks,recorded_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		cleared := 0
		if r.Cleared {
			cleared = 1
		}
		if _, err := stmt.Exec(
			r.ID, r.Player, r.Dimension, r.Activation, string(r.Outcome), r.Reason, r.Mode, r.Material, cleared,
			r.Min[0], r.Min[1], r.Min[2], r.Max[0], r.Max[1], r.Max[2],
			r.Volume, r.Error, int64(r.Ticks), r.Time.UTC().Format(timeLayout),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const selectColumns = `id,player,dimension,activation,outcome,reason,mode,material,cleared,
	min_x,min_y,min_z,max_x,max_y,max_z,volume,error,ticks,recorded_at`

// Recent returns the latest records, newest first.
func (s *Index) Recent(ctx context.Context, limit int) ([]session.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM edits ORDER BY recorded_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// RecentByPlayer returns a player's latest records, newest first.
func (s *Index) RecentByPlayer(ctx context.Context, player string, limit int) ([]session.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM edits WHERE player = ? ORDER BY recorded_at DESC, id LIMIT ?`, player, limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// CommittedVolume returns the total number of cells written by committed
// edits.
func (s *Index) CommittedVolume(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(volume) FROM edits WHERE outcome = ?`, string(session.OutcomeCommitted)).Scan(&v)
	return v.Int64, err
}

func scanRecords(rows *sql.Rows) ([]session.Record, error) {
	defer rows.Close()
	var out []session.Record
	for rows.Next() {
		var (
			r        session.Record
			outcome  string
			material sql.NullString
			errText  sql.NullString
			cleared  int
			ticks    int64
			recorded string
		)
		if err := rows.Scan(
			&r.ID, &r.Player, &r.Dimension, &r.Activation, &outcome, &r.Reason, &r.Mode, &material, &cleared,
			&r.Min[0], &r.Min[1], &r.Min[2], &r.Max[0], &r.Max[1], &r.Max[2],
			&r.Volume, &errText, &ticks, &recorded,
		); err != nil {
			return nil, err
		}
		r.Outcome = session.Outcome(outcome)
		r.Material = material.String
		r.Error = errText.String
		r.Cleared = cleared != 0
		r.Ticks = uint64(ticks)
		t, err := time.Parse(timeLayout, recorded)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		r.Time = t
		out = append(out, r)
	}
	return out, rows.Err()
}

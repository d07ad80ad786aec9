// Package indexdb keeps a queryable SQLite index next to the JSONL logs:
// finished runs, saved level snapshots and the ticks that carried events.
// The logs stay the source of truth; the index may drop rows under load.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelsiege.ai/internal/persistence/snapshot"
	"voxelsiege.ai/internal/sim/catalogs"
	"voxelsiege.ai/internal/sim/tuning"
	"voxelsiege.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropRun      atomic.Uint64
	dropSnapshot atomic.Uint64
	writeFail    atomic.Uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropRunTotal      uint64 `json:"drop_run_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	WriteFailTotal    uint64 `json:"write_fail_total"`
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqRun
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	run      world.RunRecord
	snapshot SnapshotRow
	done     chan struct{}
}

// SnapshotRow describes one level file written by the server.
type SnapshotRow struct {
	Path         string    `json:"path"`
	Tick         uint64    `json:"tick"`
	Cells        int       `json:"cells"`
	Channels     int       `json:"channels"`
	Turrets      int       `json:"turrets"`
	InnerTurrets int       `json:"inner_turrets"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
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

	s := &SQLiteIndex{
		db: db,
		// Event bursts (explosions, debris pickups) must not stall the sim.
		ch: make(chan req, 65536),
	}
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
		"PRAGMA temp_store=MEMORY;",
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
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			phase TEXT NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_tick ON events(kind, tick);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			start_tick INTEGER NOT NULL,
			end_tick INTEGER NOT NULL,
			elapsed_s REAL NOT NULL,
			level_digest TEXT NOT NULL,
			shots INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			pickups INTEGER NOT NULL,
			damage_taken REAL NOT NULL,
			destroyed REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_outcome_end ON runs(outcome, end_tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			channels INTEGER NOT NULL,
			turrets INTEGER NOT NULL,
			inner_turrets INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropRunTotal:      s.dropRun.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteFailTotal:    s.writeFail.Load(),
	}
}

// WriteTick indexes ticks that carried events; quiet ticks are skipped.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() || len(entry.Events) == 0 {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordRun(rec world.RunRecord) {
	if s == nil || s.closed.Load() || rec.RunID == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqRun, run: rec}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, tick uint64, lv snapshot.LevelV1) {
	if s == nil || s.closed.Load() || path == "" {
		return
	}
	r := SnapshotRow{
		Path:         path,
		Tick:         tick,
		Cells:        lv.Cells(),
		Channels:     len(lv.Voxels),
		Turrets:      len(lv.Turrets),
		InnerTurrets: len(lv.InnerTurrets),
		RecordedAt:   time.Now().UTC(),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Sync blocks until everything queued before it has been committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the catalogs and tuning the server booted with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cats.Materials.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "materials", digest: cats.Materials.Digest, json: b})
	}
	if b, _ := json.Marshal(cats.Weapons.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "weapons", digest: cats.Weapons.Digest, json: b})
	}
	if b, _ := json.Marshal(cats.Turrets.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "turrets", digest: cats.Turrets.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		// Built-in catalogs have no file digest.
		digest := r.digest
		if digest == "" {
			sum := sha256.Sum256(r.json)
			digest = hex.EncodeToString(sum[:])
		}
		if _, err := stmt.Exec(r.name, digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	return d, err
}

// Runs lists the most recently finished runs, newest first. An empty
// outcome matches every run.
func (s *SQLiteIndex) Runs(ctx context.Context, outcome string, limit int) ([]world.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,session_id,outcome,started_at,ended_at,start_tick,end_tick,elapsed_s,level_digest,shots,kills,pickups,damage_taken,destroyed
		FROM runs WHERE (?='' OR outcome=?) ORDER BY end_tick DESC, ended_at DESC LIMIT ?`, outcome, outcome, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.RunRecord
	for rows.Next() {
		var (
			r                  world.RunRecord
			started, ended     string
			startTick, endTick int64
		)
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.Outcome, &started, &ended, &startTick, &endTick, &r.Elapsed, &r.LevelDigest,
			&r.Stats.ShotsFired, &r.Stats.Kills, &r.Stats.Pickups, &r.Stats.DamageTaken, &r.Stats.Destroyed); err != nil {
			return nil, err
		}
		r.StartTick, r.EndTick = uint64(startTick), uint64(endTick)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path,tick,cells,channels,turrets,inner_turrets,recorded_at
		FROM snapshots ORDER BY recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var (
			r    SnapshotRow
			tick int64
			at   string
		)
		if err := rows.Scan(&r.Path, &tick, &r.Cells, &r.Channels, &r.Turrets, &r.InnerTurrets, &at); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCount reports how many indexed events of kind landed in [from, to].
func (s *SQLiteIndex) EventCount(ctx context.Context, kind string, from, to uint64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE kind=? AND tick BETWEEN ? AND ?`, kind, int64(from), int64(to)).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,phase,digest,events,raw_json) VALUES(?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(tick,seq,kind,raw_json) VALUES(?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,session_id,outcome,started_at,ended_at,start_tick,end_tick,elapsed_s,level_digest,shots,kills,pickups,damage_taken,destroyed) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(path,tick,cells,channels,turrets,inner_turrets,recorded_at) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEvent, insertRun, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeFail.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFail.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeFail.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			raw, _ := json.Marshal(e)
			if !exec(insertTick, int64(e.Tick), e.Phase, e.Digest, len(e.Events), string(raw)) {
				continue
			}
			for i, ev := range e.Events {
				evJSON, _ := json.Marshal(ev)
				if !exec(insertEvent, int64(e.Tick), i, ev.Kind, string(evJSON)) {
					break
				}
			}

		case reqRun:
			rr := r.run
			exec(insertRun,
				rr.RunID,
				rr.SessionID,
				rr.Outcome,
				rr.StartedAt.UTC().Format(time.RFC3339Nano),
				rr.EndedAt.UTC().Format(time.RFC3339Nano),
				int64(rr.StartTick),
				int64(rr.EndTick),
				rr.Elapsed,
				rr.LevelDigest,
				rr.Stats.ShotsFired,
				rr.Stats.Kills,
				rr.Stats.Pickups,
				rr.Stats.DamageTaken,
				rr.Stats.Destroyed,
			)

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot,
				sn.Path,
				int64(sn.Tick),
				sn.Cells,
				sn.Channels,
				sn.Turrets,
				sn.InnerTurrets,
				sn.RecordedAt.Format(time.RFC3339Nano),
			)
		}
		// Readers share the single connection; never hold a transaction
		// across an idle queue.
		if tx != nil && (opCount >= commitEvery || len(s.ch) == 0 || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

package indexdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/session"
	"dreamofone.ai/internal/sim/tuning"
)

// SQLiteIndex is a secondary, queryable copy of session logs. The JSONL
// archive stays the source of truth; the index may drop records under load.
type SQLiteIndex struct {
	*Reader

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqOutcome
	reqSync
)

type req struct {
	kind    reqKind
	session string
	event   events.Record
	outcome session.Outcome
	done    chan struct{}
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	r, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(r.db); err != nil {
		_ = r.db.Close()
		return nil, fmt.Errorf("index schema: %w", err)
	}
	s := &SQLiteIndex{
		Reader: r,
		ch:     make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func open(path string) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Reader{db: db}, nil
}

func initSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS catalogs (
		name TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		tick_rate_hz INTEGER NOT NULL,
		ended_at TEXT NOT NULL DEFAULT '',
		cause TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		elapsed REAL NOT NULL DEFAULT 0,
		summary_json TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		stamp REAL NOT NULL,
		event_type TEXT NOT NULL,
		category TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		target_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		note TEXT NOT NULL,
		severity INTEGER NOT NULL,
		trust REAL NOT NULL,
		delta INTEGER NOT NULL,
		place_id TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session_seq ON events(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_rule ON events(rule_id);
	INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');
	`)
	return err
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

func (s *SQLiteIndex) enqueue(r req) bool {
	if s == nil || s.closed.Load() {
		return false
	}
	select {
	case s.ch <- r:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// ObserverFor returns an events.Observer that indexes records under
// sessionID. It never blocks.
func (s *SQLiteIndex) ObserverFor(sessionID string) events.Observer {
	return func(rec events.Record) {
		s.enqueue(req{kind: reqEvent, session: sessionID, event: rec})
	}
}

// RecordOutcome stores how a session ended.
func (s *SQLiteIndex) RecordOutcome(sessionID string, out session.Outcome) {
	s.enqueue(req{kind: reqOutcome, session: sessionID, outcome: out})
}

// Sync waits until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if s == nil || s.closed.Load() {
		return nil
	}
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

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
	}
}

// StartSession registers a session row. It is written synchronously.
func (s *SQLiteIndex) StartSession(id string, tickRateHz int) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sessions(id,started_at,tick_rate_hz) VALUES(?,?,?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), tickRateHz)
	return err
}

// UpsertCatalogs stores catalog digests and the applied tuning.
func (s *SQLiteIndex) UpsertCatalogs(digests map[string]string, tune tuning.Tuning) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, name := range names {
		if _, err := stmt.Exec(name, digests[name], "{}", now); err != nil {
			return err
		}
	}
	b, _ := json.Marshal(tune)
	sum := sha256.Sum256(b)
	if _, err := stmt.Exec("tuning", hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	var (
		tx            *sqlx.Tx
		ops           int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
		seq           = map[string]int64{}
	)

	begin := func() bool {
		if tx != nil {
			return true
		}
		t, err := s.db.Beginx()
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return false
		}
		tx, ops, lastCommit = t, 0, time.Now()
		return true
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failed.Add(uint64(ops))
		} else {
			s.written.Add(uint64(ops))
		}
		tx, ops, lastCommit = nil, 0, time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqSync:
			commit()
			close(r.done)
			continue
		case reqEvent:
			if !begin() {
				s.failed.Add(1)
				continue
			}
			seq[r.session]++
			e := r.event
			_, err := tx.Exec(`INSERT OR REPLACE INTO events(id,session_id,seq,stamp,event_type,category,actor_id,actor_role,target_id,rule_id,source_id,topic,note,severity,trust,delta,place_id)
				VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				e.ID, r.session, seq[r.session], e.Stamp, string(e.Type), string(e.Category), e.ActorID, e.ActorRole, e.TargetID,
				e.RuleID, e.SourceID, e.TopicID, e.Note, e.Severity, e.Trust, e.Delta, e.Place())
			if err != nil {
				s.failed.Add(1)
				continue
			}
			ops++
		case reqOutcome:
			if !begin() {
				s.failed.Add(1)
				continue
			}
			summary, _ := json.Marshal(r.outcome.Summary)
			_, err := tx.Exec(`UPDATE sessions SET ended_at=?, cause=?, reason=?, elapsed=?, summary_json=? WHERE id=?`,
				time.Now().UTC().Format(time.RFC3339Nano), string(r.outcome.Cause), r.outcome.Reason, r.outcome.Elapsed, string(summary), r.session)
			if err != nil {
				s.failed.Add(1)
				continue
			}
			ops++
		}
		if ops >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

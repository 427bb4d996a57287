package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelcraft.ai/storagenet/internal/persistence/snapshot"
	"voxelcraft.ai/storagenet/internal/sim/network/model"
	"voxelcraft.ai/storagenet/internal/sim/world"
)

// SQLiteIndex is a queryable read model of ticks, audits, networks and
// snapshots. Writes are queued and applied by one goroutine; a full queue
// drops the write since the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick        uint64
	Path        string
	Chunks      int
	Blocks      int
	Chests      int
	Links       []snapshot.LinkV1
	Controllers int
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
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
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			requests INTEGER NOT NULL,
			networks INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS requests (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			kind TEXT NOT NULL,
			controller TEXT NOT NULL,
			simulate INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_controller_tick ON requests(controller, tick);`,
		`CREATE TABLE IF NOT EXISTS networks (
			controller TEXT PRIMARY KEY,
			members INTEGER NOT NULL,
			links INTEGER NOT NULL,
			truncated INTEGER NOT NULL,
			tick INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			dim TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(dim, x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			chests INTEGER NOT NULL,
			links INTEGER NOT NULL,
			controllers INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS links (
			pos TEXT PRIMARY KEY,
			snapshot_tick INTEGER NOT NULL,
			record_json TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
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
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// RecordSnapshot indexes a written snapshot and replaces the link table with
// the records it holds.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:        snap.Header.Tick,
		Path:        path,
		Chunks:      len(snap.Chunks),
		Blocks:      len(snap.Blocks),
		Chests:      len(snap.Chests),
		Links:       snap.Links,
		Controllers: len(snap.Controllers),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqTick:
			err = applyTick(tx, r.tick)
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			err = applyAudit(tx, a, auditSeq)
			auditSeq++
		case reqSnapshot:
			err = applySnapshot(tx, r.snapshot)
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func applyTick(tx *sql.Tx, t world.TickLogEntry) error {
	raw, _ := json.Marshal(t)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks(tick,requests,networks,raw_json) VALUES(?,?,?,?)`,
		int64(t.Tick), len(t.Requests), len(t.Networks), string(raw)); err != nil {
		return err
	}
	for i, r := range t.Requests {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO requests(tick,seq,actor,kind,controller,simulate,ok) VALUES(?,?,?,?,?,?,?)`,
			int64(t.Tick), i, r.Actor, r.Kind, r.Controller, boolInt(r.Simulate), boolInt(r.OK)); err != nil {
			return err
		}
	}
	for _, n := range t.Networks {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO networks(controller,members,links,truncated,tick) VALUES(?,?,?,?,?)`,
			n.Controller, n.Members, n.Links, boolInt(n.Truncated), int64(t.Tick)); err != nil {
			return err
		}
	}
	return nil
}

func applyAudit(tx *sql.Tx, a world.AuditEntry, seq int) error {
	raw, _ := json.Marshal(a)
	p, _ := model.ParseDimPos(a.Pos)
	_, err := tx.Exec(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,dim,x,y,z,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		int64(a.Tick), seq, a.Actor, a.Action, p.Dim, p.X, p.Y, p.Z, a.Reason, string(raw))
	return err
}

func applySnapshot(tx *sql.Tx, sn snapshotRow) error {
	if _, err := tx.Exec(`INSERT OR REPLACE INTO snapshots(tick,path,chunks,blocks,chests,links,controllers) VALUES(?,?,?,?,?,?,?)`,
		int64(sn.Tick), sn.Path, sn.Chunks, sn.Blocks, sn.Chests, len(sn.Links), sn.Controllers); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return err
	}
	for _, l := range sn.Links {
		pos := model.DimPos{Dim: l.Pos.Dim, X: l.Pos.X, Y: l.Pos.Y, Z: l.Pos.Z}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO links(pos,snapshot_tick,record_json) VALUES(?,?,?)`,
			pos.String(), int64(sn.Tick), string(l.Record)); err != nil {
			return err
		}
	}
	return nil
}

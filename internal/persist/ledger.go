package persist

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// KillRecord is one agent death with the drops it produced.
type KillRecord struct {
	Agent     ecs.EntityID
	Archetype string
	SpawnID   int
	Killer    ecs.EntityID
	RewardExp int
	Day       int
	Position  r3.Vec
	Drops     []data.Drop
	At        time.Time
}

// Ledger writes kill records on its own goroutine. Record never blocks the
// game loop: a full queue drops the record with a Warn.
type Ledger struct {
	db      *DB
	ch      chan KillRecord
	done    chan struct{}
	dropped atomic.Uint64
	written atomic.Uint64
	timeout time.Duration
	log     *zap.Logger
}

func NewLedger(db *DB, queueSize int, log *zap.Logger) *Ledger {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		db:      db,
		ch:      make(chan KillRecord, queueSize),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
		log:     log.Named("ledger"),
	}
	go l.run()
	return l
}

// Record queues r. A nil ledger discards. Must not be called after Close.
func (l *Ledger) Record(r KillRecord) bool {
	if l == nil {
		return false
	}
	select {
	case l.ch <- r:
		return true
	default:
		l.dropped.Add(1)
		l.log.Warn("ledger queue full, dropping kill",
			zap.Stringer("agent", r.Agent),
			zap.String("archetype", r.Archetype),
			zap.Uint64("dropped", l.dropped.Load()),
		)
		return false
	}
}

func (l *Ledger) Dropped() uint64 { return l.dropped.Load() }
func (l *Ledger) Written() uint64 { return l.written.Load() }

// Close writes what is queued and stops the writer. The DB stays open.
func (l *Ledger) Close() {
	if l == nil {
		return
	}
	close(l.ch)
	<-l.done
}

func (l *Ledger) run() {
	defer close(l.done)
	for r := range l.ch {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := l.write(ctx, r)
		cancel()
		if err != nil {
			l.log.Error("ledger write failed", zap.Stringer("agent", r.Agent), zap.Error(err))
			continue
		}
		l.written.Add(1)
	}
}

// write inserts the kill and its drops in one transaction.
func (l *Ledger) write(ctx context.Context, r KillRecord) error {
	tx, err := l.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback()

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	var killID int64
	if err := tx.QueryRowContext(ctx, l.db.rebind(
		`INSERT INTO agent_kills (agent_id, archetype, spawn_id, killer_id, reward_exp, day, pos_x, pos_y, pos_z, killed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		int64(r.Agent), r.Archetype, r.SpawnID, int64(r.Killer), r.RewardExp, r.Day,
		r.Position.X, r.Position.Y, r.Position.Z, at.UnixMilli(),
	).Scan(&killID); err != nil {
		return fmt.Errorf("insert kill: %w", err)
	}

	for _, d := range r.Drops {
		if _, err := tx.ExecContext(ctx, l.db.rebind(
			`INSERT INTO agent_drops (kill_id, item_id, count) VALUES (?, ?, ?)`),
			killID, d.ItemID, d.Count,
		); err != nil {
			return fmt.Errorf("insert drop: %w", err)
		}
	}

	return tx.Commit()
}

// RecentKills returns the newest kills first, drops included.
func (db *DB) RecentKills(ctx context.Context, limit int) ([]KillRecord, error) {
	rows, err := db.SQL.QueryContext(ctx, db.rebind(
		`SELECT id, agent_id, archetype, spawn_id, killer_id, reward_exp, day, pos_x, pos_y, pos_z, killed_at
		 FROM agent_kills ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query kills: %w", err)
	}
	defer rows.Close()

	var (
		out []KillRecord
		ids []int64
	)
	for rows.Next() {
		var (
			r             KillRecord
			id, agent, by int64
			killedAt      int64
		)
		if err := rows.Scan(&id, &agent, &r.Archetype, &r.SpawnID, &by, &r.RewardExp, &r.Day,
			&r.Position.X, &r.Position.Y, &r.Position.Z, &killedAt); err != nil {
			return nil, fmt.Errorf("scan kill: %w", err)
		}
		r.Agent = ecs.EntityID(agent)
		r.Killer = ecs.EntityID(by)
		r.At = time.UnixMilli(killedAt)
		out = append(out, r)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read kills: %w", err)
	}
	rows.Close()

	for i, id := range ids {
		drops, err := db.dropsOf(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Drops = drops
	}
	return out, nil
}

func (db *DB) dropsOf(ctx context.Context, killID int64) ([]data.Drop, error) {
	rows, err := db.SQL.QueryContext(ctx, db.rebind(
		`SELECT item_id, count FROM agent_drops WHERE kill_id = ? ORDER BY item_id`), killID)
	if err != nil {
		return nil, fmt.Errorf("query drops: %w", err)
	}
	defer rows.Close()
	var out []data.Drop
	for rows.Next() {
		var d data.Drop
		if err := rows.Scan(&d.ItemID, &d.Count); err != nil {
			return nil, fmt.Errorf("scan drop: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics while keeping one JSONB row per plan and per plan event log.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"breedcore/internal/infra/persistence/memory"
	"breedcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/breedcore?sslmode=disable"

	plansTable  = "breeding_plans"
	eventsTable = "plan_events"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS breeding_plans (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plan_events (
		plan_id TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
}

// rowSet is the last payload written per key, used to skip unchanged rows.
type rowSet map[string][]byte

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions. Only plans and event logs whose encoding changed since the
// previous write are sent to the database.
type Store struct {
	*memory.Store
	db *sql.DB

	mu     sync.Mutex
	plans  rowSet
	events rowSet
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN),
// ensures the plan tables exist and hydrates the in-memory store from them.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	s := &Store{Store: memory.NewStore(engine), db: db}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// RunInTransaction applies fn within a transaction, then writes changed rows to Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) load(ctx context.Context) error {
	plans, err := readRows(ctx, s.db, `SELECT id, payload FROM breeding_plans`)
	if err != nil {
		return fmt.Errorf("load plans: %w", err)
	}
	events, err := readRows(ctx, s.db, `SELECT plan_id, payload FROM plan_events`)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	snapshot := memory.Snapshot{
		Plans:  make(map[string]domain.BreedingPlan, len(plans)),
		Events: make(map[string][]domain.PlanEvent, len(events)),
	}
	for id, payload := range plans {
		var plan domain.BreedingPlan
		if err := json.Unmarshal(payload, &plan); err != nil {
			return fmt.Errorf("decode plan %s: %w", id, err)
		}
		snapshot.Plans[id] = plan
	}
	for id, payload := range events {
		var log []domain.PlanEvent
		if err := json.Unmarshal(payload, &log); err != nil {
			return fmt.Errorf("decode events %s: %w", id, err)
		}
		snapshot.Events[id] = log
	}
	s.ImportState(snapshot)
	s.plans, s.events = plans, events
	return nil
}

func readRows(ctx context.Context, db *sql.DB, query string) (rowSet, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := rowSet{}
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[key] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func encodeRows[V any](items map[string]V) (rowSet, error) {
	out := make(rowSet, len(items))
	for key, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = data
	}
	return out, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	plans, err := encodeRows(snapshot.Plans)
	if err != nil {
		return err
	}
	events, err := encodeRows(snapshot.Events)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := syncRows(ctx, tx, plansTable, "id", s.plans, plans); err != nil {
		return err
	}
	if err := syncRows(ctx, tx, eventsTable, "plan_id", s.events, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	s.plans, s.events = plans, events
	return nil
}

// syncRows upserts keys whose payload changed and deletes keys that disappeared.
func syncRows(ctx context.Context, tx *sql.Tx, table, key string, prev, next rowSet) error {
	upsert := fmt.Sprintf(`INSERT INTO %s(%s,payload) VALUES($1,$2) ON CONFLICT(%s) DO UPDATE SET payload=EXCLUDED.payload`, table, key, key)
	for _, id := range sortedKeys(next) {
		if old, ok := prev[id]; ok && bytes.Equal(old, next[id]) {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsert, id, next[id]); err != nil {
			return fmt.Errorf("upsert %s %s: %w", table, id, err)
		}
	}
	remove := fmt.Sprintf(`DELETE FROM %s WHERE %s=$1`, table, key)
	for _, id := range sortedKeys(prev) {
		if _, ok := next[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, remove, id); err != nil {
			return fmt.Errorf("delete %s %s: %w", table, id, err)
		}
	}
	return nil
}

func sortedKeys(rows rowSet) []string {
	out := make([]string, 0, len(rows))
	for k := range rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

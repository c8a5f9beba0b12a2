// Package testutil provides an in-memory stub database for postgres store tests.
// It understands exactly the statement shapes the store issues: CREATE TABLE,
// single-row upserts keyed by the first column, deletes by key, and full-table
// two-column selects.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrInjected is returned by every failure switch on StubConn.
var ErrInjected = errors.New("stub: injected failure")

var driverSeq atomic.Uint64

// Row is a stored key/payload pair.
type Row struct {
	Key     string
	Payload []byte
}

// StubConn records executed statements and keeps rows per table keyed by
// their primary key.
type StubConn struct {
	mu     sync.Mutex
	execs  []string
	tables map[string]map[string][]byte

	FailPing   bool
	FailBegin  bool
	FailCommit bool
	// FailTables makes any statement touching the named table fail.
	FailTables map[string]bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{tables: make(map[string]map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

// Execs returns every statement executed so far.
func (c *StubConn) Execs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.execs...)
}

// Rows returns a table's rows ordered by key.
func (c *StubConn) Rows(table string) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.tables[table]))
	for k := range c.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, Row{Key: k, Payload: c.tables[table][k]})
	}
	return out
}

// Seed writes a row directly, bypassing statement parsing.
func (c *StubConn) Seed(table, key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tables[table] == nil {
		c.tables[table] = make(map[string][]byte)
	}
	c.tables[table][key] = payload
}

type stubDriver struct {
	conn *StubConn
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepare unsupported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping: %w", ErrInjected)
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin: %w", ErrInjected)
	}
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)

	fields := strings.Fields(query)
	if len(fields) < 3 {
		return nil, fmt.Errorf("stub: cannot parse %q", query)
	}
	verb := strings.ToUpper(fields[0])
	switch verb {
	case "CREATE":
		return driver.RowsAffected(0), nil
	case "INSERT", "DELETE":
	default:
		return nil, fmt.Errorf("stub: unsupported statement %q", query)
	}

	table := tableName(fields[2])
	if c.FailTables[table] {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(verb), table, ErrInjected)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stub: %s %s without key", strings.ToLower(verb), table)
	}
	key, ok := args[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("stub: key must be a string, got %T", args[0].Value)
	}
	if verb == "DELETE" {
		delete(c.tables[table], key)
		return driver.RowsAffected(1), nil
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("stub: insert into %s expects 2 args, got %d", table, len(args))
	}
	payload, _ := args[1].Value.([]byte)
	if c.tables[table] == nil {
		c.tables[table] = make(map[string][]byte)
	}
	c.tables[table][key] = append([]byte(nil), payload...)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	lower := strings.ToLower(query)
	from := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || from == -1 {
		return nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	cols := strings.Split(query[len("select "):from], ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	rest := strings.Fields(query[from+len(" from "):])
	if len(rest) == 0 {
		return nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	table := tableName(rest[0])
	if c.FailTables[table] {
		return nil, fmt.Errorf("select %s: %w", table, ErrInjected)
	}
	rows := c.Rows(table)
	values := make([][]driver.Value, 0, len(rows))
	for _, r := range rows {
		values = append(values, []driver.Value{r.Key, r.Payload})
	}
	return &stubRows{cols: cols, rows: values}, nil
}

func tableName(token string) string {
	if i := strings.Index(token, "("); i >= 0 {
		token = token[:i]
	}
	return strings.ToLower(strings.TrimSpace(token))
}

type stubTx struct {
	conn *StubConn
}

func (t stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit: %w", ErrInjected)
	}
	return nil
}

func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

package sqlmap

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

// QueryHandler answers a query with columns and rows.
type QueryHandler func(query string, args []driver.NamedValue) (cols []string, rows [][]driver.Value, err error)

// ExecHandler answers a statement that does not return rows.
type ExecHandler func(query string, args []driver.NamedValue) (driver.Result, error)

type recorded struct {
	query string
	args  []any
}

// fakeDB is the state shared by every connection of one test database.
type fakeDB struct {
	query QueryHandler
	exec  ExecHandler

	openErr error
	opened  atomic.Int32
	closed  atomic.Int32

	// badPrepares is how many Prepare calls still fail with driver.ErrBadConn.
	badPrepares atomic.Int32

	mu    sync.Mutex
	calls []recorded
}

func (db *fakeDB) record(q string, args []driver.NamedValue) {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	db.mu.Lock()
	db.calls = append(db.calls, recorded{query: q, args: vals})
	db.mu.Unlock()
}

func (db *fakeDB) last(t *testing.T) recorded {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.calls) == 0 {
		t.Fatal("no statement executed")
	}
	return db.calls[len(db.calls)-1]
}

type testConnector struct{ db *fakeDB }

func (c *testConnector) Connect(context.Context) (driver.Conn, error) {
	if c.db.openErr != nil {
		return nil, c.db.openErr
	}
	c.db.opened.Add(1)
	return &testConn{db: c.db}, nil
}

func (c *testConnector) Driver() driver.Driver { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	db *fakeDB
}

func (c *testConn) Prepare(q string) (driver.Stmt, error) {
	if c.db.badPrepares.Add(-1) >= 0 {
		return nil, driver.ErrBadConn
	}
	return &testStmt{db: c.db, q: q}, nil
}

func (c *testConn) Close() error {
	c.db.closed.Add(1)
	return nil
}
func (c *testConn) Begin() (driver.Tx, error) { return nil, driver.ErrSkip }

type testStmt struct {
	db *fakeDB
	q  string
}

func (s *testStmt) Close() error  { return nil }
func (s *testStmt) NumInput() int { return -1 }

func (s *testStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("use ExecContext")
}

func (s *testStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("use QueryContext")
}

func (s *testStmt) ExecContext(_ context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.db.record(s.q, args)
	if s.db.exec == nil {
		return driver.RowsAffected(0), nil
	}
	return s.db.exec(s.q, args)
}

func (s *testStmt) QueryContext(_ context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.db.record(s.q, args)
	if s.db.query == nil {
		return &testRows{}, nil
	}
	cols, data, err := s.db.query(s.q, args)
	if err != nil {
		return nil, err
	}
	return &testRows{cols: cols, data: data}, nil
}

type testRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *testRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

type testResult struct{ rows, lastID int64 }

func (r testResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r testResult) RowsAffected() (int64, error) { return r.rows, nil }

// newTestDB creates a *sql.DB backed by the in-memory test driver. Its
// connections are never put back into database/sql's idle list, so each
// Conn call opens a new fake connection.
func newTestDB(t *testing.T, db *fakeDB) *sql.DB {
	t.Helper()
	sdb := sql.OpenDB(&testConnector{db: db})
	sdb.SetMaxIdleConns(0)
	return sdb
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// newTestPool returns a pool over a fake database and closes it with the test.
func newTestPool(t *testing.T, db *fakeDB) *Pool {
	t.Helper()
	p := NewPool(newTestDB(t, db), quietLogger())
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// newTestDispatcher registers ifaces and returns a dispatcher over db.
func newTestDispatcher(t *testing.T, db *fakeDB, ifaces []Interface, opts ...Option) (*Dispatcher, *Pool) {
	t.Helper()
	reg := NewRegistry()
	for _, iface := range ifaces {
		if err := reg.Register(iface); err != nil {
			t.Fatalf("register %s: %v", iface.Name, err)
		}
	}
	p := newTestPool(t, db)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewDispatcher(reg, p, opts...), p
}

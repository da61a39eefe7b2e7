package sqlmap

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var usersIface = Interface{
	Name: "Users",
	Operations: []Operation{
		{
			Name:    "Find",
			Query:   `SELECT * FROM t WHERE id=#{id}`,
			Params:  []Param{{Name: "id"}},
			Returns: TypeOf[map[string]any](),
		},
		{
			Name:   "Save",
			Update: `UPDATE users SET name=#{u.name} WHERE id=#{u.id}`,
			Params: []Param{{Name: "u", Type: TypeOf[account]()}},
		},
		{
			Name:         "Create",
			Insert:       `INSERT INTO users (name) VALUES (#{name})`,
			GeneratedKey: true,
			Params:       []Param{{Name: "name"}},
		},
		{
			Name:   "Add",
			Insert: `INSERT INTO users (name) VALUES (#{name})`,
			Params: []Param{{Name: "name"}},
		},
		{
			Name:    "AddID",
			Insert:  `INSERT INTO users (name) VALUES (#{name})`,
			Params:  []Param{{Name: "name"}},
			Returns: TypeOf[int](),
		},
		{
			Name:    "Remove",
			Delete:  `DELETE FROM users WHERE id=#{id}`,
			Params:  []Param{{Name: "id"}},
			Returns: TypeOf[int](),
		},
	},
}

func execResult(rows, lastID int64) ExecHandler {
	return func(string, []driver.NamedValue) (driver.Result, error) {
		return testResult{rows: rows, lastID: lastID}, nil
	}
}

func TestExecute_BindsPlaceholders(t *testing.T) {
	db := &fakeDB{}
	d, _ := newTestDispatcher(t, db, []Interface{usersIface})

	_, err := d.Execute(context.Background(), "Users.Find", 5)
	require.NoError(t, err)

	got := db.last(t)
	require.Equal(t, `SELECT * FROM t WHERE id=?`, got.query)
	require.Equal(t, []any{int64(5)}, got.args)
}

func TestExecute_BindsFields(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 0)}
	d, _ := newTestDispatcher(t, db, []Interface{usersIface})

	n, err := d.Execute(context.Background(), "Users.Save", account{ID: 7, Name: "ann"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got := db.last(t)
	require.Equal(t, `UPDATE users SET name=? WHERE id=?`, got.query)
	require.Equal(t, []any{"ann", int64(7)}, got.args)
}

func TestExecute_DollarPlaceholders(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 0)}
	d, _ := newTestDispatcher(t, db, []Interface{usersIface}, WithPlaceholder(PlaceholderDollar))

	_, err := d.Execute(context.Background(), "Users.Save", &account{ID: 7, Name: "ann"})
	require.NoError(t, err)
	require.Equal(t, `UPDATE users SET name=$1 WHERE id=$2`, db.last(t).query)
}

func TestExecute_InsertAndDeleteResults(t *testing.T) {
	db := &fakeDB{exec: execResult(3, 42)}
	d, _ := newTestDispatcher(t, db, []Interface{usersIface})
	ctx := context.Background()

	key, err := d.Execute(ctx, "Users.Create", "ann")
	require.NoError(t, err)
	require.Equal(t, int64(42), key, "generated key")

	n, err := d.Execute(ctx, "Users.Add", "ann")
	require.NoError(t, err)
	require.Equal(t, int64(3), n, "rows affected")

	id, err := d.Execute(ctx, "Users.AddID", "ann")
	require.NoError(t, err)
	require.Equal(t, 42, id, "non-void insert returns the key as declared type")

	removed, err := d.Execute(ctx, "Users.Remove", 9)
	require.NoError(t, err)
	require.Equal(t, 3, removed)
}

func TestExecute_CallErrors(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeDB{}, []Interface{usersIface})
	ctx := context.Background()

	_, err := d.Execute(ctx, "Users.Nope")
	require.ErrorIs(t, err, ErrUnknownOperation)

	_, err = d.Execute(ctx, "Users.Find")
	require.ErrorIs(t, err, ErrArgCount)
	_, err = d.Execute(ctx, "Users.Find", 1, 2)
	require.ErrorIs(t, err, ErrArgCount)

	// Binding failures are returned regardless of the error policy.
	_, err = d.Execute(ctx, "Users.Save", nil)
	require.ErrorIs(t, err, ErrNilArgument)
}

func TestExecute_LenientSwallowsFailures(t *testing.T) {
	boom := errors.New("syntax error near users")
	db := &fakeDB{exec: func(string, []driver.NamedValue) (driver.Result, error) { return nil, boom }}
	log, buf := bufferLogger()
	d, p := newTestDispatcher(t, db, []Interface{usersIface}, WithLogger(log))

	out, err := d.Execute(context.Background(), "Users.Remove", 1)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Contains(t, buf.String(), "execute failed")
	require.Contains(t, buf.String(), "op=Users.Remove")
	require.Contains(t, buf.String(), "syntax error near users")

	st := p.Stats()
	require.Equal(t, 0, st.InUse, "connection returned after failure")
	require.Equal(t, 1, st.Idle)

	// The returned connection still serves the next call.
	db.exec = execResult(1, 0)
	n, err := d.Execute(context.Background(), "Users.Remove", 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, 1, db.opened.Load())
}

func TestExecute_StrictReturnsFailures(t *testing.T) {
	boom := errors.New("syntax error near users")
	db := &fakeDB{exec: func(string, []driver.NamedValue) (driver.Result, error) { return nil, boom }}
	d, p := newTestDispatcher(t, db, []Interface{usersIface}, WithStrict(true))

	_, err := d.Execute(context.Background(), "Users.Remove", 1)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, p.Stats().InUse)
}

func TestExecute_AcquireFailure(t *testing.T) {
	refused := errors.New("connection refused")
	ctx := context.Background()

	d, _ := newTestDispatcher(t, &fakeDB{openErr: refused}, []Interface{usersIface})
	out, err := d.Execute(ctx, "Users.Find", 1)
	require.NoError(t, err)
	require.Nil(t, out)

	d, _ = newTestDispatcher(t, &fakeDB{openErr: refused}, []Interface{usersIface}, WithStrict(true))
	_, err = d.Execute(ctx, "Users.Find", 1)
	require.ErrorIs(t, err, refused)
}

func TestExecute_ReusesConnection(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 0)}
	d, p := newTestDispatcher(t, db, []Interface{usersIface})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := d.Execute(ctx, "Users.Remove", i)
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, db.opened.Load())
	require.Equal(t, PoolStats{Open: 1, Idle: 1}, p.Stats())
}

func TestExecute_DebugTrace(t *testing.T) {
	log, buf := bufferLogger()
	d, _ := newTestDispatcher(t, &fakeDB{}, []Interface{usersIface}, WithLogger(log))

	_, err := d.Execute(context.Background(), "Users.Find", 1)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "level=DEBUG")
	require.Contains(t, buf.String(), "op=Users.Find")
}

func TestExecute_DiscardsBrokenConnection(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 0)}
	db.badPrepares.Store(1)
	d, p := newTestDispatcher(t, db, []Interface{usersIface}, WithStrict(true))
	ctx := context.Background()

	_, err := d.Execute(ctx, "Users.Remove", 1)
	require.ErrorIs(t, err, driver.ErrBadConn)
	require.Equal(t, PoolStats{}, p.Stats(), "broken connection must not be pooled")

	for i := 0; i < 4; i++ {
		n, err := d.Execute(ctx, "Users.Remove", i)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
	require.EqualValues(t, 2, db.opened.Load(), "one fresh connection replaces the broken one")
	require.EqualValues(t, 1, db.closed.Load())
	require.Equal(t, PoolStats{Open: 1, Idle: 1}, p.Stats())
}

func TestExecute_LenientRecoversFromBrokenConnection(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 0)}
	db.badPrepares.Store(1)
	d, p := newTestDispatcher(t, db, []Interface{usersIface})
	ctx := context.Background()

	out, err := d.Execute(ctx, "Users.Remove", 1)
	require.NoError(t, err)
	require.Nil(t, out)

	n, err := d.Execute(ctx, "Users.Remove", 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, PoolStats{Open: 1, Idle: 1}, p.Stats())
}

package sqlmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFactory(t *testing.T) {
	db := &fakeDB{exec: execResult(1, 9)}
	p := newTestPool(t, db)

	f, err := NewFactory(p, "pgx", []Interface{usersIface, notesIface}, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Equal(t, []string{"Notes", "Users"}, f.Mappers())
	require.Same(t, p, f.Pool())
	require.NotNil(t, f.Dispatcher())

	_, ok := f.Registry().Lookup("Users.Save")
	require.True(t, ok)

	users, err := f.Mapper("Users")
	require.NoError(t, err)
	require.Equal(t, "Users", users.Name())
	require.Equal(t, []string{"Add", "AddID", "Create", "Find", "Remove", "Save"}, users.Methods())

	// The placeholder style follows the driver.
	_, err = users.Call(context.Background(), "Save", account{ID: 1, Name: "x"})
	require.NoError(t, err)
	require.Equal(t, `UPDATE users SET name=$1 WHERE id=$2`, db.last(t).query)

	_, err = f.Mapper("Orders")
	require.ErrorIs(t, err, ErrUnknownMapper)
}

func TestNewFactory_Failures(t *testing.T) {
	p := newTestPool(t, &fakeDB{})

	_, err := NewFactory(p, "sqlite", []Interface{{Operations: notesIface.Operations}})
	require.ErrorContains(t, err, "no name")

	bad := Interface{Name: "Bad", Operations: []Operation{{Name: "X"}}}
	_, err = NewFactory(p, "sqlite", []Interface{notesIface, bad})
	require.ErrorIs(t, err, ErrNoStatement)

	_, err = NewFactory(p, "sqlite", []Interface{notesIface, notesIface})
	require.ErrorIs(t, err, ErrDuplicateOperation)

	_, err = NewFactory(p, "sqlite", []Interface{{Name: "Empty"}, {Name: "Empty"}})
	require.ErrorContains(t, err, "declared twice")
}

func TestInvoke(t *testing.T) {
	db := &fakeDB{exec: execResult(2, 5)}
	p := newTestPool(t, db)
	f, err := NewFactory(p, "sqlite", []Interface{usersIface}, WithLogger(quietLogger()))
	require.NoError(t, err)
	users, err := f.Mapper("Users")
	require.NoError(t, err)
	ctx := context.Background()

	n, err := Invoke[int](ctx, users, "Remove", 1)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = Invoke[string](ctx, users, "Remove", 1)
	require.ErrorContains(t, err, "result is int, not string")

	// No row yields the zero value.
	row, err := Invoke[map[string]any](ctx, users, "Find", 1)
	require.NoError(t, err)
	require.Empty(t, row)

	_, err = Invoke[int](ctx, users, "Missing")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

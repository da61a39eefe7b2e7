// Package demo declares a small users mapper. It is registered under the
// package name "demo" and used by sqlmapctl and the integration tests.
package demo

import (
	"context"
	"time"

	"github.com/go-mizu/sqlmap"
)

// Package is the name Users is registered under.
const Package = "demo"

type User struct {
	ID      int64     `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Email   string    `db:"email" json:"email"`
	Active  bool      `db:"active" json:"active"`
	Created time.Time `db:"created_at" json:"created_at"`
}

// UsersInterface is the declaration table for Users.
var UsersInterface = sqlmap.Interface{
	Name: "Users",
	Operations: []sqlmap.Operation{
		{
			Name: "Migrate",
			Update: `CREATE TABLE IF NOT EXISTS users (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL UNIQUE,
				active     BOOLEAN NOT NULL DEFAULT 1,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
		{
			Name:         "Create",
			Insert:       `INSERT INTO users (name, email) VALUES (#{u.name}, #{u.email})`,
			GeneratedKey: true,
			Params:       []sqlmap.Param{{Name: "u", Type: sqlmap.TypeOf[User]()}},
			Returns:      sqlmap.TypeOf[int64](),
		},
		{
			Name:    "Rename",
			Update:  `UPDATE users SET name = #{name} WHERE id = #{id}`,
			Params:  []sqlmap.Param{{Name: "id", Type: sqlmap.TypeOf[int64]()}, {Name: "name", Type: sqlmap.TypeOf[string]()}},
			Returns: sqlmap.TypeOf[int64](),
		},
		{
			Name:   "Deactivate",
			Update: `UPDATE users SET active = 0 WHERE id = #{userID}`,
			Params: []sqlmap.Param{{Name: "id", As: "userID", Type: sqlmap.TypeOf[int64]()}},
		},
		{
			Name:   "Delete",
			Delete: `DELETE FROM users WHERE id = #{id}`,
			Params: []sqlmap.Param{{Name: "id", Type: sqlmap.TypeOf[int64]()}},
		},
		{
			Name:    "FindByID",
			Query:   `SELECT id, name, email, active, created_at FROM users WHERE id = #{id}`,
			Params:  []sqlmap.Param{{Name: "id", Type: sqlmap.TypeOf[int64]()}},
			Returns: sqlmap.TypeOf[*User](),
		},
		{
			Name:    "FindAll",
			Query:   `SELECT id, name, email, active, created_at FROM users ORDER BY id`,
			Returns: sqlmap.TypeOf[[]User](),
		},
		{
			Name:    "IDs",
			Query:   `SELECT id FROM users ORDER BY id`,
			Returns: sqlmap.TypeOf[[]int64](),
		},
		{
			Name:    "Count",
			Query:   `SELECT COUNT(*) FROM users`,
			Returns: sqlmap.TypeOf[int](),
		},
		{
			Name:    "Row",
			Query:   `SELECT id, name, email FROM users WHERE email = #{email}`,
			Params:  []sqlmap.Param{{Name: "email", Type: sqlmap.TypeOf[string]()}},
			Returns: sqlmap.TypeOf[map[string]any](),
		},
		{
			Name:    "Rows",
			Query:   `SELECT id, name FROM users WHERE active = #{active} ORDER BY id`,
			Params:  []sqlmap.Param{{Name: "active", Type: sqlmap.TypeOf[bool]()}},
			Returns: sqlmap.TypeOf[[]map[string]any](),
		},
	},
}

func init() {
	sqlmap.RegisterPackage(Package, UsersInterface)
}

// Users is the typed view over the Users mapper.
type Users struct {
	m *sqlmap.Mapper
}

// NewUsers looks up the Users mapper in f.
func NewUsers(f *sqlmap.Factory) (Users, error) {
	m, err := f.Mapper(UsersInterface.Name)
	if err != nil {
		return Users{}, err
	}
	return Users{m: m}, nil
}

func (u Users) Migrate(ctx context.Context) error {
	_, err := u.m.Call(ctx, "Migrate")
	return err
}

func (u Users) Create(ctx context.Context, user User) (int64, error) {
	return sqlmap.Invoke[int64](ctx, u.m, "Create", user)
}

func (u Users) Rename(ctx context.Context, id int64, name string) (int64, error) {
	return sqlmap.Invoke[int64](ctx, u.m, "Rename", id, name)
}

func (u Users) Deactivate(ctx context.Context, id int64) (int64, error) {
	return sqlmap.Invoke[int64](ctx, u.m, "Deactivate", id)
}

func (u Users) Delete(ctx context.Context, id int64) (int64, error) {
	return sqlmap.Invoke[int64](ctx, u.m, "Delete", id)
}

// FindByID returns nil when no user has id.
func (u Users) FindByID(ctx context.Context, id int64) (*User, error) {
	return sqlmap.Invoke[*User](ctx, u.m, "FindByID", id)
}

func (u Users) FindAll(ctx context.Context) ([]User, error) {
	return sqlmap.Invoke[[]User](ctx, u.m, "FindAll")
}

func (u Users) IDs(ctx context.Context) ([]int64, error) {
	return sqlmap.Invoke[[]int64](ctx, u.m, "IDs")
}

func (u Users) Count(ctx context.Context) (int, error) {
	return sqlmap.Invoke[int](ctx, u.m, "Count")
}

func (u Users) Row(ctx context.Context, email string) (map[string]any, error) {
	return sqlmap.Invoke[map[string]any](ctx, u.m, "Row", email)
}

func (u Users) Rows(ctx context.Context, active bool) ([]map[string]any, error) {
	return sqlmap.Invoke[[]map[string]any](ctx, u.m, "Rows", active)
}

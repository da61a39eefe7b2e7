package sqlmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
)

// Dispatcher executes registered operations against a Pool.
//
// Execution and connection failures are logged and yield a nil result unless
// the dispatcher is strict; callers in lenient mode cannot tell "no data"
// from "query failed". Unknown operations, wrong argument counts, binding
// failures and conversion failures are always returned as errors.
type Dispatcher struct {
	reg    *Registry
	pool   *Pool
	log    *slog.Logger
	strict bool
	texts  map[string]string // operation id -> dialect-specific SQL
}

// NewDispatcher returns a dispatcher serving the operations of reg. reg must
// not be modified afterwards.
func NewDispatcher(reg *Registry, pool *Pool, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	d := &Dispatcher{
		reg:    reg,
		pool:   pool,
		log:    o.log,
		strict: o.strict,
		texts:  make(map[string]string, len(reg.ops)),
	}
	for id, desc := range reg.ops {
		d.texts[id] = o.placeholder.Rewrite(desc.Prepared)
	}
	return d
}

// Execute runs the operation registered under id with args and converts its
// result into the declared return shape.
//
//	Insert         → generated key (GeneratedKey or non-void return) or rows affected
//	Update, Delete → rows affected
//	Query          → value of the declared return type, see Shape
//
// Numbers are returned as int64 unless the operation declares a scalar
// return type, in which case they are converted to it.
func (d *Dispatcher) Execute(ctx context.Context, id string, args ...any) (any, error) {
	desc, ok := d.reg.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	if len(args) != desc.NumParams {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, id, desc.NumParams, len(args))
	}

	bound, err := bindArgs(desc, args)
	if err != nil {
		return nil, fmt.Errorf("sqlmap: %s: %w", id, err)
	}

	conn, err := d.pool.Get(ctx)
	if err != nil {
		return d.fail(desc, "acquire", err)
	}

	out, stage, err := d.run(ctx, desc, conn, bound)
	if brokenConn(err) {
		d.log.Warn("sqlmap: discarding broken connection", "op", id, "conn", conn.ID())
		_ = conn.Release()
	} else {
		_ = conn.Close()
	}
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			return nil, err
		}
		return d.fail(desc, stage, err)
	}
	return out, nil
}

// run prepares and executes desc on conn. stage names the step that failed.
func (d *Dispatcher) run(ctx context.Context, desc *Descriptor, conn *Conn, bound []any) (out any, stage string, err error) {
	text := d.texts[desc.ID]
	d.log.Debug("sqlmap: execute", "op", desc.ID, "sql", text, "args", len(bound), "conn", conn.ID())

	stmt, err := conn.PrepareContext(ctx, text)
	if err != nil {
		return nil, "prepare", err
	}
	defer stmt.Close()

	switch desc.Kind {
	case KindInsert:
		out, err = d.insert(ctx, desc, stmt, bound)
	case KindUpdate, KindDelete:
		out, err = d.update(ctx, desc, stmt, bound)
	case KindQuery:
		out, err = d.query(ctx, desc, stmt, bound)
	default:
		err = fmt.Errorf("unsupported statement kind %d", desc.Kind)
	}
	return out, "execute", err
}

// brokenConn reports whether err left the session unusable. database/sql
// closes a *sql.Conn whose driver reported ErrBadConn.
func brokenConn(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

// bindArgs resolves every placeholder tag, in order, to its argument value.
func bindArgs(desc *Descriptor, args []any) ([]any, error) {
	out := make([]any, len(desc.Tags))
	for i, tag := range desc.Tags {
		param, field := splitTag(tag)
		v := args[desc.ParamIndex[param]]
		if field != "" {
			fv, err := ReadField(v, field)
			if err != nil {
				return nil, fmt.Errorf("bind #{%s}: %w", tag, err)
			}
			v = fv
		}
		out[i] = v
	}
	return out, nil
}

func (d *Dispatcher) insert(ctx context.Context, desc *Descriptor, stmt *sql.Stmt, args []any) (any, error) {
	if desc.Returning {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		key, err := firstColumn(rows)
		if err != nil || key == nil {
			return nil, err
		}
		return d.number(desc, key)
	}

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	if desc.GeneratedKey || desc.Returns != nil {
		id, err := res.LastInsertId()
		if err == nil {
			return d.number(desc, id)
		}
		if desc.GeneratedKey {
			return nil, fmt.Errorf("generated key: %w", err)
		}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return d.number(desc, n)
}

func (d *Dispatcher) update(ctx context.Context, desc *Descriptor, stmt *sql.Stmt, args []any) (any, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return d.number(desc, n)
}

// number converts a count or key to the declared scalar return type.
func (d *Dispatcher) number(desc *Descriptor, n any) (any, error) {
	if desc.Returns == nil || !isScalarType(derefPtr(desc.Returns)) {
		return n, nil
	}
	v, err := convertValue(n, desc.Returns)
	if err != nil {
		return nil, &ConversionError{Op: desc.ID, Err: err}
	}
	return v.Interface(), nil
}

// fail applies the error policy to an execution or connection failure.
func (d *Dispatcher) fail(desc *Descriptor, stage string, err error) (any, error) {
	d.log.Error("sqlmap: "+stage+" failed", "op", desc.ID, "error", err)
	if d.strict {
		return nil, fmt.Errorf("sqlmap: %s: %s: %w", desc.ID, stage, err)
	}
	return nil, nil
}

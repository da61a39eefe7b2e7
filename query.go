package sqlmap

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/jmoiron/sqlx"
)

// cursor wraps *sql.Rows with a non-consuming emptiness probe: the row read
// by empty is handed out again by the first next.
type cursor struct {
	rows   *sql.Rows
	peeked bool
}

func (c *cursor) empty() (bool, error) {
	if !c.rows.Next() {
		return true, c.rows.Err()
	}
	c.peeked = true
	return false, nil
}

func (c *cursor) next() bool {
	if c.peeked {
		c.peeked = false
		return true
	}
	return c.rows.Next()
}

func (c *cursor) err() error { return c.rows.Err() }

func (d *Dispatcher) query(ctx context.Context, desc *Descriptor, stmt *sql.Stmt, args []any) (out any, err error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			out, err = nil, cerr
		}
	}()

	c := &cursor{rows: rows}
	empty, err := c.empty()
	if err != nil {
		return nil, err
	}
	if empty {
		return emptyResult(desc), nil
	}

	switch desc.Shape {
	case ShapeNone:
		return nil, nil
	case ShapeScalar:
		return scalarRow(desc, c)
	case ShapeMap:
		return mapRow(desc, c)
	case ShapeObject:
		return objectRow(desc, c)
	case ShapeScalarList:
		return scalarList(desc, c)
	case ShapeObjectList:
		return objectList(desc, c)
	case ShapeMapList:
		return mapList(desc, c)
	}
	return nil, nil
}

// emptyResult is what a query without rows yields: an empty slice for list
// shapes, an empty map for ShapeMap and nil otherwise.
func emptyResult(desc *Descriptor) any {
	switch {
	case desc.Shape.IsList():
		return reflect.MakeSlice(desc.Returns, 0, 0).Interface()
	case desc.Shape == ShapeMap:
		return reflect.MakeMap(desc.Returns).Interface()
	}
	return nil
}

// scalarList reads column 1 of every row, in result order.
func scalarList(desc *Descriptor, c *cursor) (any, error) {
	out := reflect.MakeSlice(desc.Returns, 0, 8)
	for c.next() {
		vals, err := sqlx.SliceScan(c.rows)
		if err != nil {
			return nil, err
		}
		v, err := convertValue(vals[0], desc.Elem)
		if err != nil {
			return nil, &ConversionError{Op: desc.ID, Err: err}
		}
		out = reflect.Append(out, v)
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

func objectList(desc *Descriptor, c *cursor) (any, error) {
	cols, err := c.rows.Columns()
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(desc.Returns, 0, 8)
	for c.next() {
		row := make(map[string]any, len(cols))
		if err := sqlx.MapScan(c.rows, row); err != nil {
			return nil, err
		}
		v, err := buildObject(desc, desc.Elem, cols, row)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, v)
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

func mapList(desc *Descriptor, c *cursor) (any, error) {
	out := reflect.MakeSlice(desc.Returns, 0, 8)
	for c.next() {
		row := make(map[string]any)
		if err := sqlx.MapScan(c.rows, row); err != nil {
			return nil, err
		}
		out = reflect.Append(out, rowMapOf(row, desc.Elem))
	}
	if err := c.err(); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// rowMapOf returns row as a value of the map type t. Keys are converted to
// t's key type, which may be a named string type.
func rowMapOf(row map[string]any, t reflect.Type) reflect.Value {
	if t == reflect.TypeOf(row) {
		return reflect.ValueOf(row)
	}
	out := reflect.MakeMapWithSize(t, len(row))
	for col, v := range row {
		ev := reflect.Zero(t.Elem())
		if v != nil {
			ev = reflect.ValueOf(v)
		}
		out.SetMapIndex(reflect.ValueOf(col).Convert(t.Key()), ev)
	}
	return out
}

// buildObject creates a value of type t and sets one field per column, in
// column order. A column without a matching field fails the whole call.
func buildObject(desc *Descriptor, t reflect.Type, cols []string, row map[string]any) (reflect.Value, error) {
	ptr := NewInstance(t)
	for _, col := range cols {
		if err := WriteField(ptr, col, row[col]); err != nil {
			return reflect.Value{}, &ConversionError{Op: desc.ID, Column: col, Err: err}
		}
	}
	v := reflect.ValueOf(ptr)
	if t.Kind() != reflect.Pointer {
		v = v.Elem()
	}
	return v, nil
}

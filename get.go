package sqlmap

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Single-row shapes read the first row only; further rows are ignored. Use
// LIMIT 1 (or an equivalent WHERE clause) when at most one row is expected.

// scalarRow reads column 1 of row 1.
func scalarRow(desc *Descriptor, c *cursor) (any, error) {
	if !c.next() {
		return nil, c.err()
	}
	vals, err := sqlx.SliceScan(c.rows)
	if err != nil {
		return nil, err
	}
	v, err := convertValue(vals[0], desc.Returns)
	if err != nil {
		return nil, &ConversionError{Op: desc.ID, Err: err}
	}
	return v.Interface(), nil
}

func mapRow(desc *Descriptor, c *cursor) (any, error) {
	if !c.next() {
		return emptyResult(desc), c.err()
	}
	row := make(map[string]any)
	if err := sqlx.MapScan(c.rows, row); err != nil {
		return nil, err
	}
	return rowMapOf(row, desc.Returns).Interface(), nil
}

func objectRow(desc *Descriptor, c *cursor) (any, error) {
	if !c.next() {
		return nil, c.err()
	}
	cols, err := c.rows.Columns()
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	if err := sqlx.MapScan(c.rows, row); err != nil {
		return nil, err
	}
	v, err := buildObject(desc, desc.Returns, cols, row)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// firstColumn returns column 1 of the first row, or nil without rows.
func firstColumn(rows *sql.Rows) (any, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	vals, err := sqlx.SliceScan(rows)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

package sqlmap

import (
	"reflect"
)

// Kind is the statement kind of an operation.
type Kind int

const (
	KindInsert Kind = iota + 1
	KindUpdate
	KindDelete
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Shape is the structural category a query result is converted into.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeScalar
	ShapeObject
	ShapeMap
	ShapeScalarList
	ShapeObjectList
	ShapeMapList
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeScalar:
		return "scalar"
	case ShapeObject:
		return "object"
	case ShapeMap:
		return "map"
	case ShapeScalarList:
		return "[]scalar"
	case ShapeObjectList:
		return "[]object"
	case ShapeMapList:
		return "[]map"
	default:
		return "unknown"
	}
}

// IsList reports whether s produces a slice.
func (s Shape) IsList() bool {
	return s == ShapeScalarList || s == ShapeObjectList || s == ShapeMapList
}

// Param declares one argument of an operation. Its position is its index in
// Operation.Params.
type Param struct {
	// Name is the parameter's own name.
	Name string
	// As overrides Name as the name placeholders bind against.
	As string
	// Type is the declared argument type. It is needed to validate and
	// resolve dotted placeholders such as #{user.name}.
	Type reflect.Type
}

// BoundName returns the name placeholders refer to.
func (p Param) BoundName() string {
	if p.As != "" {
		return p.As
	}
	return p.Name
}

// Operation declares one method of a mapper interface bound to exactly one
// SQL statement. Exactly one of Insert, Update, Delete and Query must be set;
// the populated field selects the statement kind and holds the SQL template.
//
// Example:
//
//	sqlmap.Operation{
//	    Name:    "FindByID",
//	    Query:   `SELECT id, name FROM users WHERE id = #{id}`,
//	    Params:  []sqlmap.Param{{Name: "id", Type: sqlmap.TypeOf[int64]()}},
//	    Returns: sqlmap.TypeOf[User](),
//	}
type Operation struct {
	Name string

	Insert string
	Update string
	Delete string
	Query  string

	// GeneratedKey requests the database generated key instead of the
	// affected-row count. Insert only.
	GeneratedKey bool

	Params []Param

	// Returns is the declared return type; nil means void.
	Returns reflect.Type
}

// Interface is a named set of operations served by one Mapper.
type Interface struct {
	Name       string
	Operations []Operation
}

// TypeOf returns the reflect.Type of T, including interface and map types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// statement returns the kind and template selected by the populated marker.
func (op Operation) statement() (Kind, string, error) {
	var (
		kind Kind
		sql  string
		n    int
	)
	for _, c := range []struct {
		k Kind
		s string
	}{
		{KindInsert, op.Insert},
		{KindDelete, op.Delete},
		{KindUpdate, op.Update},
		{KindQuery, op.Query},
	} {
		if c.s == "" {
			continue
		}
		kind, sql = c.k, c.s
		n++
	}
	switch {
	case n == 0:
		return 0, "", ErrNoStatement
	case n > 1:
		return 0, "", ErrMultipleStatements
	}
	return kind, sql, nil
}

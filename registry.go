package sqlmap

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
)

// Descriptor is the immutable, registration-time view of one operation.
type Descriptor struct {
	ID   string
	Kind Kind

	// Template is the SQL as declared; Prepared has every #{…} replaced by
	// "?" and Tags holds the placeholder expressions index-aligned with those
	// markers.
	Template string
	Prepared string
	Tags     []string

	ParamIndex map[string]int
	ParamType  map[string]reflect.Type
	NumParams  int

	Shape   Shape
	Elem    reflect.Type // element type for list shapes, object type for ShapeObject
	Returns reflect.Type

	GeneratedKey bool
	// Returning is set for inserts whose template ends in a RETURNING clause;
	// the key is read from the first column of the first row.
	Returning bool
}

// Registry maps Interface.Method identifiers to descriptors. It is filled once
// while a Factory is built and only read afterwards, so lookups take no lock.
type Registry struct {
	ops map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Descriptor)}
}

// OperationID joins an interface and method name into an operation identifier.
func OperationID(iface, method string) string { return iface + "." + method }

// Register parses every operation of iface. On failure nothing from iface is
// added.
func (r *Registry) Register(iface Interface) error {
	staged := make(map[string]*Descriptor, len(iface.Operations))
	for _, op := range iface.Operations {
		id := OperationID(iface.Name, op.Name)
		if _, dup := r.ops[id]; dup {
			return &RegistrationError{Op: id, Err: ErrDuplicateOperation}
		}
		if _, dup := staged[id]; dup {
			return &RegistrationError{Op: id, Err: ErrDuplicateOperation}
		}
		d, err := describe(id, op)
		if err != nil {
			return &RegistrationError{Op: id, Err: err}
		}
		staged[id] = d
	}
	for id, d := range staged {
		r.ops[id] = d
	}
	return nil
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id string) (*Descriptor, bool) {
	d, ok := r.ops[id]
	return d, ok
}

// IDs returns the registered operation identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ops))
	for id := range r.ops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var reReturning = regexp.MustCompile(`(?is)\bRETURNING\b[^;]*;?\s*$`)

func describe(id string, op Operation) (*Descriptor, error) {
	kind, tmpl, err := op.statement()
	if err != nil {
		return nil, err
	}
	if op.GeneratedKey && kind != KindInsert {
		return nil, ErrGeneratedKey
	}

	prepared, tags, err := ParseTemplate(tmpl)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		ID:           id,
		Kind:         kind,
		Template:     tmpl,
		Prepared:     prepared,
		Tags:         tags,
		ParamIndex:   make(map[string]int, len(op.Params)),
		ParamType:    make(map[string]reflect.Type, len(op.Params)),
		NumParams:    len(op.Params),
		Returns:      op.Returns,
		GeneratedKey: op.GeneratedKey,
	}

	for i, p := range op.Params {
		name := p.BoundName()
		if !isIdent(name) {
			return nil, fmt.Errorf("%w: parameter %d has invalid name %q", ErrBadTemplate, i, name)
		}
		if _, dup := d.ParamIndex[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParam, name)
		}
		d.ParamIndex[name] = i
		d.ParamType[name] = p.Type
	}

	for _, tag := range tags {
		param, field := splitTag(tag)
		if _, ok := d.ParamIndex[param]; !ok {
			return nil, fmt.Errorf("%w: #{%s}: no parameter named %q", ErrUnresolvedTag, tag, param)
		}
		if field != "" && !hasField(d.ParamType[param], field) {
			return nil, fmt.Errorf("%w: #{%s}: %s has no field %q", ErrUnresolvedTag, tag, d.ParamType[param], field)
		}
	}

	switch kind {
	case KindQuery:
		d.Shape, d.Elem = inferShape(op.Returns)
	case KindInsert:
		d.Returning = reReturning.MatchString(prepared)
	}
	return d, nil
}

// inferShape classifies a declared query return type.
func inferShape(t reflect.Type) (Shape, reflect.Type) {
	switch {
	case t == nil:
		return ShapeNone, nil
	case isRowMap(t):
		return ShapeMap, t
	case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8:
		elem := t.Elem()
		switch {
		case isRowMap(elem):
			return ShapeMapList, elem
		case isScalarType(derefPtr(elem)):
			return ShapeScalarList, elem
		default:
			return ShapeObjectList, elem
		}
	case isScalarType(derefPtr(t)):
		return ShapeScalar, t
	default:
		return ShapeObject, t
	}
}

func isRowMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface && t.Elem().NumMethod() == 0
}

package sqlmap

import (
	"context"
	"fmt"
	"sort"
)

// Mapper is the callable handle for one declared Interface. It holds no
// state besides the shared dispatcher and is safe for concurrent use.
//
// Typed wrappers forward to it, one method per operation:
//
//	type Users struct{ m *sqlmap.Mapper }
//
//	func (u Users) FindByID(ctx context.Context, id int64) (User, error) {
//	    return sqlmap.Invoke[User](ctx, u.m, "FindByID", id)
//	}
type Mapper struct {
	name    string
	methods []string
	d       *Dispatcher
}

// Name returns the interface name the mapper serves.
func (m *Mapper) Name() string { return m.name }

// Methods returns the operation names of the interface, sorted.
func (m *Mapper) Methods() []string { return append([]string(nil), m.methods...) }

// Call executes the named operation of the interface.
func (m *Mapper) Call(ctx context.Context, method string, args ...any) (any, error) {
	return m.d.Execute(ctx, OperationID(m.name, method), args...)
}

// Invoke calls method on m and asserts the result to T. A nil result (no row,
// void return, or a swallowed failure in lenient mode) yields the zero T.
func Invoke[T any](ctx context.Context, m *Mapper, method string, args ...any) (T, error) {
	var zero T
	v, err := m.Call(ctx, method, args...)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("sqlmap: %s: result is %T, not %T", OperationID(m.name, method), v, zero)
	}
	return out, nil
}

func newMapper(iface Interface, d *Dispatcher) *Mapper {
	methods := make([]string, 0, len(iface.Operations))
	for _, op := range iface.Operations {
		methods = append(methods, op.Name)
	}
	sort.Strings(methods)
	return &Mapper{name: iface.Name, methods: methods, d: d}
}

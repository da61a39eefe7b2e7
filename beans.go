package sqlmap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// FieldReader lets a type expose its fields by name without reflection.
// Dotted placeholders (#{user.name}) read through it when the bound argument
// implements it.
type FieldReader interface {
	FieldValue(name string) (any, bool)
}

// FieldWriter lets a result type populate itself from a column map. It is
// looked up on the pointer receiver. Returning an error aborts the call.
type FieldWriter interface {
	SetField(name string, value any) error
}

var (
	fieldReaderType = reflect.TypeOf((*FieldReader)(nil)).Elem()
	fieldWriterType = reflect.TypeOf((*FieldWriter)(nil)).Elem()
)

// ErrNilArgument is returned when a dotted placeholder reads from a nil value.
var ErrNilArgument = errors.New("sqlmap: field access on nil argument")

// ReadField returns the field called name of obj. obj may implement
// FieldReader, be a struct (or pointer to one) or a map keyed by string.
// Struct fields match by `db:"name"` tag first, then by case-insensitive
// field name.
func ReadField(obj any, name string) (any, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: .%s", ErrNilArgument, name)
	}
	if fr, ok := obj.(FieldReader); ok {
		v, ok := fr.FieldValue(name)
		if !ok {
			return nil, fmt.Errorf("%w: %T.%s", ErrNoField, obj, name)
		}
		return v, nil
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: .%s", ErrNilArgument, name)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: %s[%q]", ErrNoField, rv.Type(), name)
		}
		return mv.Interface(), nil
	case reflect.Struct:
		path, ok := beans.lookup(rv.Type(), name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoField, rv.Type(), name)
		}
		fv, ok := fieldByPath(rv, path)
		if !ok {
			return nil, nil
		}
		if !fv.CanInterface() {
			return nil, fmt.Errorf("%w: %s.%s is not exported", ErrNoField, rv.Type(), name)
		}
		return fv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s has no fields", ErrNoField, rv.Type())
}

// WriteField sets the field called name on dst, which must be a pointer.
// Values are converted to the field's type (see convertValue).
func WriteField(dst any, name string, value any) error {
	if fw, ok := dst.(FieldWriter); ok {
		return fw.SetField(name, value)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("sqlmap: write field %q: destination must be a non-nil pointer, got %T", name, dst)
	}
	rv = rv.Elem()

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			rv.Set(reflect.MakeMap(rv.Type()))
		}
		cv, err := convertValue(value, rv.Type().Elem())
		if err != nil {
			return fmt.Errorf("sqlmap: write field %q: %w", name, err)
		}
		rv.SetMapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()), cv)
		return nil
	case reflect.Struct:
		path, ok := beans.lookup(rv.Type(), name)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrNoField, rv.Type(), name)
		}
		fv := fieldByPathAlloc(rv, path)
		if !fv.CanSet() {
			return fmt.Errorf("%w: %s.%s is not settable", ErrNoField, rv.Type(), name)
		}
		cv, err := convertValue(value, fv.Type())
		if err != nil {
			return fmt.Errorf("sqlmap: write field %s.%s: %w", rv.Type(), name, err)
		}
		fv.Set(cv)
		return nil
	}
	return fmt.Errorf("%w: %s has no fields", ErrNoField, rv.Type())
}

// NewInstance returns a pointer to a new zero value of t. Pointer types are
// dereferenced first, so NewInstance(*User) and NewInstance(User) both
// return a *User.
func NewInstance(t reflect.Type) any {
	return reflect.New(derefPtr(t)).Interface()
}

// hasField reports whether a dotted placeholder can be resolved against t at
// registration time. Types that can only be checked at call time (interfaces,
// maps, FieldReader implementations) are accepted.
func hasField(t reflect.Type, name string) bool {
	if t == nil || t.Kind() == reflect.Interface {
		return true
	}
	if t.Implements(fieldReaderType) || reflect.PointerTo(t).Implements(fieldReaderType) {
		return true
	}
	t = derefPtr(t)
	switch t.Kind() {
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	case reflect.Struct:
		_, ok := beans.lookup(t, name)
		return ok
	}
	return false
}

// ---------------- Struct indexing & tags ----------------

var beans = &fieldCache{}

type fieldCache struct {
	structIndexCache sync.Map // key: reflect.Type -> *fieldIndex
}

type fieldIndex struct {
	byName map[string][]int // lower-case name -> index path
}

func (c *fieldCache) structIndex(rt reflect.Type) *fieldIndex {
	if v, ok := c.structIndexCache.Load(rt); ok {
		return v.(*fieldIndex)
	}
	fi := buildStructIndex(rt)
	v, _ := c.structIndexCache.LoadOrStore(rt, &fi)
	return v.(*fieldIndex)
}

// lookup resolves a column label or field name to a field index path.
// snake_case labels also match CamelCase fields (user_name → UserName).
func (c *fieldCache) lookup(rt reflect.Type, name string) ([]int, bool) {
	idx := c.structIndex(rt)
	key := normalizeColAscii(name)
	if p, ok := idx.byName[key]; ok {
		return p, true
	}
	if strings.IndexByte(key, '_') >= 0 {
		p, ok := idx.byName[strings.ReplaceAll(key, "_", "")]
		return p, ok
	}
	return nil, false
}

func buildStructIndex(rt reflect.Type) fieldIndex {
	idx := fieldIndex{byName: make(map[string][]int)}
	seen := make(map[string]struct{})

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		n := t.NumField()
		for i := 0; i < n; i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(ft) {
					walk(ft, path, inline)
					continue
				}
			}
			if name == "" {
				name = sf.Name
			}
			lc := toLowerAscii(name)
			if _, ok := seen[lc]; !ok {
				idx.byName[lc] = path
				seen[lc] = struct{}{}
			}
		}
	}
	walk(rt, nil, false)
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// fieldByPath walks fpath without allocating. It reports false when a nil
// embedded pointer sits on the path.
func fieldByPath(root reflect.Value, fpath []int) (reflect.Value, bool) {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// fieldByPathAlloc walks fpath, allocating nil embedded pointers so the final
// field is addressable. It returns the zero Value when a nil pointer on the
// path cannot be set.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// ---------------- Column normalization (ASCII fast-path) ----------------

func normalizeColAscii(s string) string {
	if l := len(s); l >= 2 {
		switch s[0] {
		case '"':
			if s[l-1] == '"' {
				s = s[1 : l-1]
			}
		case '`':
			if s[l-1] == '`' {
				s = s[1 : l-1]
			}
		case '[':
			if s[l-1] == ']' {
				s = s[1 : l-1]
			}
		}
	}
	return toLowerAscii(s)
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}

package sqlmap

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// timeLayouts are tried in order when a driver hands back a textual timestamp.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// isScalarType reports whether t is one of the recognized scalar types:
// signed and unsigned integers, floats, bool, string and time.Time, plus
// named types built on them.
func isScalarType(t reflect.Type) bool {
	if t == timeType || t.ConvertibleTo(timeType) && t.Kind() == reflect.Struct {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}

// convertValue converts a driver value into dst. It covers the conversions
// drivers commonly require: []byte to string, integer and float width
// changes, textual numbers, booleans and timestamps, sql.Scanner
// destinations and pointer destinations. nil yields the zero value.
func convertValue(v any, dst reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(dst), nil
	}

	if dst.Kind() == reflect.Pointer && !reflect.PointerTo(dst).Implements(scannerType) {
		inner, err := convertValue(v, dst.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(dst.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	if reflect.PointerTo(dst).Implements(scannerType) {
		p := reflect.New(dst)
		if err := p.Interface().(sql.Scanner).Scan(v); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst) && src.Type() != bytesType {
		out := reflect.New(dst).Elem()
		out.Set(src)
		return out, nil
	}

	if b, ok := v.([]byte); ok {
		if dst == bytesType {
			return reflect.ValueOf(append([]byte(nil), b...)), nil
		}
		return convertString(string(b), dst)
	}
	if s, ok := v.(string); ok {
		return convertString(s, dst)
	}

	out := reflect.New(dst).Elem()
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return setInt(out, src.Int(), v)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if src.Uint() > math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("sqlmap: %v overflows %s", v, dst)
			}
			return setInt(out, int64(src.Uint()), v)
		case reflect.Float32, reflect.Float64:
			f := src.Float()
			if math.Trunc(f) != f || f < math.MinInt64 || f >= math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("sqlmap: %v is not an integral %s", v, dst)
			}
			return setInt(out, int64(f), v)
		case reflect.Bool:
			if src.Bool() {
				out.SetInt(1)
			}
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if src.Int() < 0 {
				return reflect.Value{}, fmt.Errorf("sqlmap: cannot convert negative %v to %s", v, dst)
			}
			return setUint(out, uint64(src.Int()), v)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return setUint(out, src.Uint(), v)
		}
	case reflect.Float32, reflect.Float64:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.SetFloat(float64(src.Int()))
			return out, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out.SetFloat(float64(src.Uint()))
			return out, nil
		case reflect.Float32, reflect.Float64:
			out.SetFloat(src.Float())
			return out, nil
		}
	case reflect.Bool:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.SetBool(src.Int() != 0)
			return out, nil
		case reflect.Bool:
			out.SetBool(src.Bool())
			return out, nil
		}
	case reflect.String:
		switch src.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.SetString(strconv.FormatInt(src.Int(), 10))
			return out, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out.SetString(strconv.FormatUint(src.Uint(), 10))
			return out, nil
		case reflect.Float32, reflect.Float64:
			out.SetString(strconv.FormatFloat(src.Float(), 'g', -1, 64))
			return out, nil
		case reflect.Bool:
			out.SetString(strconv.FormatBool(src.Bool()))
			return out, nil
		}
		if t, ok := v.(time.Time); ok {
			out.SetString(t.Format(time.RFC3339Nano))
			return out, nil
		}
	case reflect.Struct:
		if src.Type().ConvertibleTo(dst) {
			return src.Convert(dst), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("sqlmap: cannot convert %T to %s", v, dst)
}

func convertString(s string, dst reflect.Type) (reflect.Value, error) {
	out := reflect.New(dst).Elem()
	switch dst.Kind() {
	case reflect.String:
		out.SetString(s)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, dst.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("sqlmap: convert %q to %s: %w", s, dst, err)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, dst.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("sqlmap: convert %q to %s: %w", s, dst, err)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, dst.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("sqlmap: convert %q to %s: %w", s, dst, err)
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("sqlmap: convert %q to %s: %w", s, dst, err)
		}
		out.SetBool(b)
		return out, nil
	case reflect.Struct:
		if timeType.ConvertibleTo(dst) {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return reflect.ValueOf(t).Convert(dst), nil
				}
			}
			return reflect.Value{}, fmt.Errorf("sqlmap: convert %q to %s: unrecognized time format", s, dst)
		}
	case reflect.Slice:
		if dst.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(dst), nil
		}
	case reflect.Interface:
		if reflect.TypeOf(s).AssignableTo(dst) {
			out.Set(reflect.ValueOf(s))
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("sqlmap: cannot convert string to %s", dst)
}

func setInt(out reflect.Value, n int64, v any) (reflect.Value, error) {
	if out.OverflowInt(n) {
		return reflect.Value{}, fmt.Errorf("sqlmap: %v overflows %s", v, out.Type())
	}
	out.SetInt(n)
	return out, nil
}

func setUint(out reflect.Value, n uint64, v any) (reflect.Value, error) {
	if out.OverflowUint(n) {
		return reflect.Value{}, fmt.Errorf("sqlmap: %v overflows %s", v, out.Type())
	}
	out.SetUint(n)
	return out, nil
}

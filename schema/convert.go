package schema

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	durType     = reflect.TypeOf(time.Duration(0))
	uuidType    = reflect.TypeOf(uuid.UUID{})
)

// timeLayouts are tried in order when a driver returns times as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	"2006-01-02",
}

// assign stores the driver value src into dst, allocating pointers as needed.
// A nil src resets dst to its zero value.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), src); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}
	if dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	sv := reflect.ValueOf(src)
	if sv.Type() == dst.Type() {
		dst.Set(sv)
		return nil
	}
	switch dst.Type() {
	case timeType:
		t, err := asTime(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case durType:
		ms, err := asInt(src)
		if err != nil {
			return err
		}
		dst.SetInt(int64(time.Duration(ms) * time.Millisecond))
		return nil
	case uuidType:
		u, err := asUUID(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(u))
		return nil
	}
	switch k := dst.Kind(); {
	case k == reflect.String:
		s, err := asString(src)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case k == reflect.Bool:
		b, err := asBool(src)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case k >= reflect.Int && k <= reflect.Int64:
		i, err := asInt(src)
		if err != nil {
			return err
		}
		if dst.OverflowInt(i) {
			return fmt.Errorf("value %d overflows %s", i, dst.Type())
		}
		dst.SetInt(i)
	case k >= reflect.Uint && k <= reflect.Uint64:
		i, err := asInt(src)
		if err != nil {
			return err
		}
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return fmt.Errorf("value %d overflows %s", i, dst.Type())
		}
		dst.SetUint(uint64(i))
	case k == reflect.Float32 || k == reflect.Float64:
		f, err := asFloat(src)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case k == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8:
		switch v := src.(type) {
		case []byte:
			dst.SetBytes(append([]byte(nil), v...))
		case string:
			dst.SetBytes([]byte(v))
		default:
			return fmt.Errorf("cannot convert %T to %s", src, dst.Type())
		}
	case k == reflect.Slice && dst.Type().Elem().Kind() == reflect.String:
		s, err := asString(src)
		if err != nil {
			return err
		}
		parts := reflect.MakeSlice(dst.Type(), 0, 0)
		if s != "" {
			for _, p := range strings.Split(s, ";") {
				parts = reflect.Append(parts, reflect.ValueOf(p).Convert(dst.Type().Elem()))
			}
		}
		dst.Set(parts)
	default:
		if sv.Type().ConvertibleTo(dst.Type()) {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
		return fmt.Errorf("cannot convert %T to %s", src, dst.Type())
	}
	return nil
}

func asString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", src)
}

func asInt(src any) (int64, error) {
	rv := reflect.ValueOf(src)
	switch k := rv.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64:
		return rv.Int(), nil
	case k >= reflect.Uint && k <= reflect.Uint64:
		return int64(rv.Uint()), nil
	case k == reflect.Float32 || k == reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("value %v is not integral", f)
		}
		return int64(f), nil
	case k == reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	s, err := asString(src)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func asFloat(src any) (float64, error) {
	rv := reflect.ValueOf(src)
	switch k := rv.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64:
		return float64(rv.Int()), nil
	case k >= reflect.Uint && k <= reflect.Uint64:
		return float64(rv.Uint()), nil
	case k == reflect.Float32 || k == reflect.Float64:
		return rv.Float(), nil
	}
	s, err := asString(src)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func asBool(src any) (bool, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case string, []byte:
		s, _ := asString(v)
		return strconv.ParseBool(strings.TrimSpace(s))
	}
	i, err := asInt(src)
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

func asTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case string, []byte:
		s, _ := asString(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", src)
}

func asUUID(src any) (uuid.UUID, error) {
	switch v := src.(type) {
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	}
	return uuid.UUID{}, fmt.Errorf("cannot convert %T to uuid.UUID", src)
}

// enumValue maps the stored name of an integer-backed enum to its value.
func (c *Column) enumValue(v any) (any, error) {
	rt := c.GoType
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.String {
		return v, nil
	}
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return v, nil
	}
	for i, n := range c.Enums() {
		if n == s {
			return int64(i), nil
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	return nil, errors.New("unknown enum value " + strconv.Quote(s) + " for " + c.String())
}

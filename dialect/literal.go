package dialect

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// formatter holds the literal rules that differ between backends.
type formatter interface {
	quoteString(string) string
	formatTime(time.Time) string
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	valuerType   = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// literal formats v with the rules of f and the options of c.
func literal(f formatter, c config, v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return f.quoteString(v), nil
	case []byte:
		if v == nil {
			return "NULL", nil
		}
		return f.quoteString(hex.EncodeToString(v)), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		if c.utc {
			v = v.UTC()
		}
		return f.formatTime(v), nil
	case time.Duration:
		return strconv.FormatInt(v.Milliseconds(), 10), nil
	case uuid.UUID:
		return f.quoteString(v.String()), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []string:
		return f.quoteString(strings.Join(v, ";")), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "NULL", nil
		}
		return literal(f, c, rv.Elem().Interface())
	}
	if rv.Type().Implements(valuerType) {
		dv, err := v.(driver.Valuer).Value()
		if err != nil {
			return "", fmt.Errorf("dialect: value of %T: %w", v, err)
		}
		return literal(f, c, dv)
	}
	switch k := rv.Kind(); {
	case isInt(k) && rv.Type() != durationType && rv.Type().Implements(stringerType):
		if c.enumAsString {
			return f.quoteString(v.(fmt.Stringer).String()), nil
		}
		return strconv.FormatInt(rv.Int(), 10), nil
	case isInt(k):
		return strconv.FormatInt(rv.Int(), 10), nil
	case k >= reflect.Uint && k <= reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case k == reflect.Float32 || k == reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case k == reflect.String:
		return f.quoteString(rv.String()), nil
	case k == reflect.Bool:
		return literal(f, c, rv.Bool())
	case k == reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			s, err := text(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return f.quoteString(strings.Join(parts, ";")), nil
	}
	return "", fmt.Errorf("dialect: unsupported literal type %T", v)
}

// text returns the unquoted representation of one collection element.
func text(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return strconv.FormatInt(rv.Int(), 10), nil
	case k >= reflect.Uint && k <= reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case k == reflect.Float32 || k == reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case k == reflect.String:
		return rv.String(), nil
	}
	return "", fmt.Errorf("dialect: unsupported collection element %T", v)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

// quote wraps s in single quotes, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteQualified quotes each dot-separated part of a table name.
func quoteQualified(s string, q func(string) string) string {
	if !strings.Contains(s, ".") {
		return q(s)
	}
	parts := strings.Split(s, ".")
	for i := range parts {
		parts[i] = q(parts[i])
	}
	return strings.Join(parts, ".")
}

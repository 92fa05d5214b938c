package field

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// A Type represents a field type.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeDuration
	TypeUUID
	TypeBytes
	TypeEnum
	TypeString
	TypeStrings
	TypeInt
	TypeInt32
	TypeInt64
	TypeUint
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	endTypes
)

var (
	typeNames = [...]string{
		TypeInvalid:  "invalid",
		TypeBool:     "bool",
		TypeTime:     "time.Time",
		TypeDuration: "time.Duration",
		TypeUUID:     "uuid.UUID",
		TypeBytes:    "[]byte",
		TypeEnum:     "enum",
		TypeString:   "string",
		TypeStrings:  "[]string",
		TypeInt:      "int",
		TypeInt32:    "int32",
		TypeInt64:    "int64",
		TypeUint:     "uint",
		TypeUint32:   "uint32",
		TypeUint64:   "uint64",
		TypeFloat32:  "float32",
		TypeFloat64:  "float64",
	}
	constNames = [...]string{
		TypeBool:     "TypeBool",
		TypeTime:     "TypeTime",
		TypeDuration: "TypeDuration",
		TypeUUID:     "TypeUUID",
		TypeBytes:    "TypeBytes",
		TypeEnum:     "TypeEnum",
		TypeString:   "TypeString",
		TypeStrings:  "TypeStrings",
		TypeInt:      "TypeInt",
		TypeInt32:    "TypeInt32",
		TypeInt64:    "TypeInt64",
		TypeUint:     "TypeUint",
		TypeUint32:   "TypeUint32",
		TypeUint64:   "TypeUint64",
		TypeFloat32:  "TypeFloat32",
		TypeFloat64:  "TypeFloat64",
	}
)

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// ConstName returns the constant name of a type.
func (t Type) ConstName() string {
	if t.Valid() {
		return constNames[t]
	}
	return "invalid"
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt && t < endTypes
}

// Integer reports if the given type is an integer type.
func (t Type) Integer() bool {
	return t >= TypeInt && t <= TypeUint64
}

// Valid reports if the given type is known.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	bytesType    = reflect.TypeOf([]byte(nil))
	stringsType  = reflect.TypeOf([]string(nil))
)

// Accepts reports whether a Go struct field of type rt can hold a column of
// type t. Pointer types are accepted for every type and mark the column
// as nullable.
func (t Type) Accepts(rt reflect.Type) bool {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	switch t {
	case TypeBool:
		return rt.Kind() == reflect.Bool
	case TypeTime:
		return rt.ConvertibleTo(timeType) && rt.Kind() == reflect.Struct
	case TypeDuration:
		return rt == durationType
	case TypeUUID:
		return rt == uuidType
	case TypeBytes:
		return rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8
	case TypeStrings:
		return rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.String
	case TypeString:
		return rt.Kind() == reflect.String
	case TypeEnum:
		return rt.Kind() == reflect.String || isInteger(rt.Kind())
	case TypeInt, TypeInt32, TypeInt64, TypeUint, TypeUint32, TypeUint64:
		return isInteger(rt.Kind()) && rt != durationType
	case TypeFloat32, TypeFloat64:
		return rt.Kind() == reflect.Float32 || rt.Kind() == reflect.Float64
	default:
		return false
	}
}

func isInteger(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Uint64
}

// TypeInfo holds the information of a field type.
type TypeInfo struct {
	Type  Type
	Ident string
	RType reflect.Type
}

// String returns the string representation of the type.
func (t TypeInfo) String() string {
	if t.Ident != "" {
		return t.Ident
	}
	return t.Type.String()
}

// Valid reports if the type info is valid.
func (t TypeInfo) Valid() bool {
	return t.Type.Valid()
}

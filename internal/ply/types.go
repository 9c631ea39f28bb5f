package ply

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// ScalarType is a PLY scalar value type.
type ScalarType uint8

// Supported scalar types.
const (
	Int8 ScalarType = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

// canonical names as written by most PLY exporters.
var scalarNames = map[ScalarType]string{
	Int8:    "char",
	Uint8:   "uchar",
	Int16:   "short",
	Uint16:  "ushort",
	Int32:   "int",
	Uint32:  "uint",
	Float32: "float",
	Float64: "double",
}

var scalarByName = map[string]ScalarType{
	"char": Int8, "int8": Int8,
	"uchar": Uint8, "uint8": Uint8,
	"short": Int16, "int16": Int16,
	"ushort": Uint16, "uint16": Uint16,
	"int": Int32, "int32": Int32,
	"uint": Uint32, "uint32": Uint32,
	"float": Float32, "float32": Float32,
	"double": Float64, "float64": Float64,
}

// ParseScalarType resolves a header type name, accepting both the classic
// and the sized spellings.
func ParseScalarType(name string) (ScalarType, error) {
	t, ok := scalarByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown property type %q", name)
	}

	return t, nil
}

// String returns the classic PLY name.
func (t ScalarType) String() string {
	if n, ok := scalarNames[t]; ok {
		return n
	}

	return fmt.Sprintf("ScalarType(%d)", uint8(t))
}

// Size returns the encoded width in bytes.
func (t ScalarType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether t is an integer type (valid as a list count type).
func (t ScalarType) IsInteger() bool {
	return t != Float32 && t != Float64 && t.Size() > 0
}

// validateToken checks that an ascii token is a valid literal of type t.
func (t ScalarType) validateToken(tok string) error {
	var err error

	switch t {
	case Int8, Int16, Int32:
		_, err = strconv.ParseInt(tok, 10, t.Size()*8)
	case Uint8, Uint16, Uint32:
		_, err = strconv.ParseUint(tok, 10, t.Size()*8)
	case Float32:
		_, err = strconv.ParseFloat(tok, 32)
	case Float64:
		_, err = strconv.ParseFloat(tok, 64)
	default:
		err = fmt.Errorf("unsupported type %s", t)
	}

	if err != nil {
		return fmt.Errorf("invalid %s value %q", t, tok)
	}

	return nil
}

// countFromToken parses an ascii list count.
func (t ScalarType) countFromToken(tok string) (int, error) {
	if err := t.validateToken(tok); err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid list count %q", tok)
	}

	return int(n), nil
}

// countFromBytes decodes a binary list count of type t.
func (t ScalarType) countFromBytes(b []byte, order binary.ByteOrder) (int, error) {
	var n int64

	switch t {
	case Int8:
		n = int64(int8(b[0]))
	case Uint8:
		n = int64(b[0])
	case Int16:
		n = int64(int16(order.Uint16(b)))
	case Uint16:
		n = int64(order.Uint16(b))
	case Int32:
		n = int64(int32(order.Uint32(b)))
	case Uint32:
		n = int64(order.Uint32(b))
	default:
		return 0, fmt.Errorf("list count type %s is not an integer type", t)
	}

	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("invalid list count %d", n)
	}

	return int(n), nil
}

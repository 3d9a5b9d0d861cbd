// Package dxf reads and writes DXF group code/value pair streams in both the ASCII and the
// binary form, and converts resolved documents to DXF.
package dxf

import (
	"fmt"

	"github.com/arloliu/dwgkit/errs"
)

// ValueType is the storage type of a group code's value.
type ValueType uint8

const (
	TypeInvalid ValueType = iota
	TypeString
	TypeDouble
	TypeInt16
	TypeInt32
	TypeInt64
	TypeHandle // hex string
	TypeBool
	TypeBinary // hex in ASCII files, length-prefixed chunk in binary files
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeDouble:
		return "double"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeHandle:
		return "handle"
	case TypeBool:
		return "bool"
	case TypeBinary:
		return "binary"
	default:
		return "invalid"
	}
}

type codeRange struct {
	lo, hi int
	typ    ValueType
}

// codeTable covers every assigned group code. Ranges are ordered and do not overlap.
var codeTable = []codeRange{
	{0, 4, TypeString},
	{5, 5, TypeHandle},
	{6, 9, TypeString},
	{10, 59, TypeDouble},
	{60, 79, TypeInt16},
	{90, 99, TypeInt32},
	{100, 102, TypeString},
	{105, 105, TypeHandle},
	{110, 149, TypeDouble},
	{160, 169, TypeInt64},
	{170, 179, TypeInt16},
	{210, 239, TypeDouble},
	{270, 289, TypeInt16},
	{290, 299, TypeBool},
	{300, 309, TypeString},
	{310, 319, TypeBinary},
	{320, 369, TypeHandle},
	{370, 389, TypeInt16},
	{390, 399, TypeHandle},
	{400, 409, TypeInt16},
	{410, 419, TypeString},
	{420, 429, TypeInt32},
	{430, 439, TypeString},
	{440, 449, TypeInt32},
	{450, 459, TypeInt32},
	{460, 469, TypeDouble},
	{470, 479, TypeString},
	{480, 481, TypeHandle},
	{999, 999, TypeString},
	{1000, 1003, TypeString},
	{1004, 1004, TypeBinary},
	{1005, 1005, TypeHandle},
	{1006, 1009, TypeString},
	{1010, 1059, TypeDouble},
	{1060, 1070, TypeInt16},
	{1071, 1071, TypeInt32},
}

// TypeOf returns the value type of group code code.
//
// Returns:
//   - ValueType: the storage type
//   - error: errs.ErrInvalidGroupCode for unassigned codes
func TypeOf(code int) (ValueType, error) {
	lo, hi := 0, len(codeTable)
	for lo < hi {
		mid := (lo + hi) / 2
		r := codeTable[mid]
		switch {
		case code < r.lo:
			hi = mid
		case code > r.hi:
			lo = mid + 1
		default:
			return r.typ, nil
		}
	}

	return TypeInvalid, fmt.Errorf("%w: %d", errs.ErrInvalidGroupCode, code)
}

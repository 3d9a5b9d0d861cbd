package dxf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/dwgkit/errs"
)

// Pair is one group code and its value. Value holds a string (TypeString), float64
// (TypeDouble), int64 (all integer types), uint64 (TypeHandle), bool (TypeBool) or []byte
// (TypeBinary).
type Pair struct {
	Code  int
	Value any
}

// Pair constructors, one per Go value type.
func String(code int, s string) Pair { return Pair{Code: code, Value: s} }
func Double(code int, f float64) Pair { return Pair{Code: code, Value: f} }
func Int(code int, i int64) Pair { return Pair{Code: code, Value: i} }
func Handle(code int, h uint64) Pair { return Pair{Code: code, Value: h} }
func Bool(code int, b bool) Pair { return Pair{Code: code, Value: b} }
func Binary(code int, data []byte) Pair { return Pair{Code: code, Value: data} }

// Str returns the string value, or "" for other types.
func (p Pair) Str() string {
	s, _ := p.Value.(string)
	return s
}

// Float returns the double value, or 0.
func (p Pair) Float() float64 {
	f, _ := p.Value.(float64)
	return f
}

// Integer returns the integer value, or 0.
func (p Pair) Integer() int64 {
	i, _ := p.Value.(int64)
	return i
}

// Ref returns the handle value, or 0.
func (p Pair) Ref() uint64 {
	h, _ := p.Value.(uint64)
	return h
}

func (p Pair) String() string {
	switch v := p.Value.(type) {
	case uint64:
		return fmt.Sprintf("%d: %X", p.Code, v)
	case []byte:
		return fmt.Sprintf("%d: % X", p.Code, v)
	default:
		return fmt.Sprintf("%d: %v", p.Code, v)
	}
}

// check verifies that Value has the Go type required by the code.
func (p Pair) check() (ValueType, error) {
	typ, err := TypeOf(p.Code)
	if err != nil {
		return typ, err
	}

	var ok bool
	switch typ {
	case TypeString:
		_, ok = p.Value.(string)
	case TypeDouble:
		_, ok = p.Value.(float64)
	case TypeInt16, TypeInt32, TypeInt64:
		_, ok = p.Value.(int64)
	case TypeHandle:
		_, ok = p.Value.(uint64)
	case TypeBool:
		_, ok = p.Value.(bool)
	case TypeBinary:
		_, ok = p.Value.([]byte)
	}
	if !ok {
		return typ, fmt.Errorf("%w: code %d wants %s, got %T", errs.ErrInvalidDXFValue, p.Code, typ, p.Value)
	}

	return typ, nil
}

// parseValue converts the text of an ASCII value line.
func parseValue(code int, typ ValueType, s string) (Pair, error) {
	p := Pair{Code: code}

	var err error
	switch typ {
	case TypeString:
		p.Value = s
	case TypeDouble:
		p.Value, err = strconv.ParseFloat(s, 64)
	case TypeInt16:
		p.Value, err = strconv.ParseInt(s, 10, 16)
	case TypeInt32:
		p.Value, err = strconv.ParseInt(s, 10, 32)
	case TypeInt64:
		p.Value, err = strconv.ParseInt(s, 10, 64)
	case TypeHandle:
		p.Value, err = strconv.ParseUint(s, 16, 64)
	case TypeBool:
		var i int64
		i, err = strconv.ParseInt(s, 10, 16)
		p.Value = i != 0
	case TypeBinary:
		p.Value, err = decodeHex(s)
	}
	if err != nil {
		return p, fmt.Errorf("%w: code %d %q: %w", errs.ErrInvalidDXFValue, code, s, err)
	}

	return p, nil
}

// formatValue renders the value line of an ASCII file.
func formatValue(typ ValueType, v any) string {
	switch typ {
	case TypeDouble:
		return strconv.FormatFloat(v.(float64), 'f', -1, 64)
	case TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(v.(int64), 10)
	case TypeHandle:
		return strings.ToUpper(strconv.FormatUint(v.(uint64), 16))
	case TypeBool:
		if v.(bool) {
			return "1"
		}
		return "0"
	case TypeBinary:
		return fmt.Sprintf("%X", v.([]byte))
	default:
		return v.(string)
	}
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd hex length %d", len(s))
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		b, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}

	return out, nil
}

package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
)

// BinarySentinel starts every binary DXF file.
const BinarySentinel = "AutoCAD Binary DXF\r\n\x1a\x00"

// maxChunk is the longest binary chunk a single pair can carry in a binary file.
const maxChunk = math.MaxUint8

// textEncoding returns the encoding of strings for a drawing code page; zero means UTF-8,
// which DXF files from R2007 on use regardless of the code page.
func textEncoding(codePage uint16) encoding.Encoding {
	if codePage == 0 {
		return unicode.UTF8
	}

	return bitstream.CodePageEncoding(codePage)
}

// Writer emits group code/value pairs.
//
// Note: Writer buffers its output; call Flush when done.
type Writer struct {
	w      *bufio.Writer
	binary bool
	enc    *encoding.Encoder
	engine endian.EndianEngine
	buf    []byte
	err    error
}

// NewWriter creates a writer. A binary writer emits BinarySentinel immediately. Strings are
// encoded with codePage; zero selects UTF-8.
func NewWriter(w io.Writer, binary bool, codePage uint16) *Writer {
	dw := &Writer{
		w:      bufio.NewWriter(w),
		binary: binary,
		enc:    textEncoding(codePage).NewEncoder(),
		engine: endian.GetLittleEndianEngine(),
	}
	if binary {
		_, dw.err = dw.w.WriteString(BinarySentinel)
	}

	return dw
}

// Write emits p.
//
// Returns:
//   - error: errs.ErrInvalidGroupCode, errs.ErrInvalidDXFValue when the value type does not
//     match the code or a string cannot be encoded, or the first write error
func (w *Writer) Write(p Pair) error {
	if w.err != nil {
		return w.err
	}
	typ, err := p.check()
	if err != nil {
		return err
	}

	if w.binary {
		err = w.writeBinary(p, typ)
	} else {
		err = w.writeASCII(p, typ)
	}
	if err != nil && !isValueError(err) {
		w.err = err
	}

	return err
}

// WriteAll emits every pair in order.
func (w *Writer) WriteAll(pairs ...Pair) error {
	for _, p := range pairs {
		if err := w.Write(p); err != nil {
			return err
		}
	}

	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()

	return w.err
}

func (w *Writer) encode(code int, s string) ([]byte, error) {
	b, err := w.enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: code %d %q: %w", errs.ErrInvalidDXFValue, code, s, err)
	}

	return b, nil
}

func (w *Writer) writeASCII(p Pair, typ ValueType) error {
	value := []byte(formatValue(typ, p.Value))
	if typ == TypeString {
		var err error
		if value, err = w.encode(p.Code, p.Value.(string)); err != nil {
			return err
		}
	}

	w.buf = fmt.Appendf(w.buf[:0], "%3d\r\n", p.Code)
	w.buf = append(w.buf, value...)
	w.buf = append(w.buf, '\r', '\n')
	_, err := w.w.Write(w.buf)

	return err
}

func (w *Writer) writeBinary(p Pair, typ ValueType) error {
	b := w.engine.AppendUint16(w.buf[:0], uint16(p.Code))

	switch typ {
	case TypeDouble:
		b = w.engine.AppendUint64(b, math.Float64bits(p.Value.(float64)))
	case TypeInt16:
		b = w.engine.AppendUint16(b, uint16(p.Value.(int64)))
	case TypeInt32:
		b = w.engine.AppendUint32(b, uint32(p.Value.(int64)))
	case TypeInt64:
		b = w.engine.AppendUint64(b, uint64(p.Value.(int64)))
	case TypeBool:
		if p.Value.(bool) {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	case TypeBinary:
		data := p.Value.([]byte)
		if len(data) > maxChunk {
			return fmt.Errorf("%w: code %d chunk of %d bytes", errs.ErrInvalidDXFValue, p.Code, len(data))
		}
		b = append(b, byte(len(data)))
		b = append(b, data...)
	case TypeHandle:
		b = append(b, formatValue(typ, p.Value)...)
		b = append(b, 0)
	default:
		s, err := w.encode(p.Code, p.Value.(string))
		if err != nil {
			return err
		}
		b = append(b, s...)
		b = append(b, 0)
	}
	w.buf = b

	_, err := w.w.Write(b)

	return err
}

// isValueError reports a rejected pair, which leaves the stream usable.
func isValueError(err error) bool {
	return errors.Is(err, errs.ErrInvalidDXFValue)
}

package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
)

// Reader parses a pair stream. The form is detected from the first bytes: a stream starting
// with BinarySentinel is binary, anything else is ASCII.
type Reader struct {
	r      *bufio.Reader
	binary bool
	dec    *encoding.Decoder
	engine endian.EndianEngine
	line   int
}

// NewReader creates a reader. Strings are decoded with codePage; zero selects UTF-8.
//
// Returns:
//   - *Reader: the reader positioned at the first pair
//   - error: a read error while detecting the form
func NewReader(r io.Reader, codePage uint16) (*Reader, error) {
	br := bufio.NewReader(r)
	dr := &Reader{
		r:      br,
		dec:    textEncoding(codePage).NewDecoder(),
		engine: endian.GetLittleEndianEngine(),
	}

	head, err := br.Peek(len(BinarySentinel))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	if string(head) == BinarySentinel {
		dr.binary = true
		_, _ = br.Discard(len(BinarySentinel))
	}

	return dr, nil
}

// Binary reports whether the stream is binary DXF.
func (r *Reader) Binary() bool {
	return r.binary
}

// Next returns the next pair.
//
// Returns:
//   - Pair: the decoded pair
//   - error: io.EOF at a clean end of stream, errs.ErrInvalidGroupCode or
//     errs.ErrInvalidDXFValue for malformed pairs, io.ErrUnexpectedEOF for a truncated pair
func (r *Reader) Next() (Pair, error) {
	if r.binary {
		return r.nextBinary()
	}

	return r.nextASCII()
}

// All reads pairs up to and including the first EOF marker (code 0, value "EOF"), or to the
// end of the stream.
func (r *Reader) All() ([]Pair, error) {
	var pairs []Pair
	for {
		p, err := r.Next()
		if errors.Is(err, io.EOF) {
			return pairs, nil
		}
		if err != nil {
			return pairs, err
		}
		pairs = append(pairs, p)
		if p.Code == 0 && p.Str() == "EOF" {
			return pairs, nil
		}
	}
}

func (r *Reader) readLine() (string, error) {
	s, err := r.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			err = nil
		} else {
			return "", err
		}
	}
	r.line++

	return strings.TrimRight(s, "\r\n"), nil
}

func (r *Reader) nextASCII() (Pair, error) {
	codeLine, err := r.readLine()
	if err != nil {
		return Pair{}, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeLine))
	if err != nil {
		return Pair{}, fmt.Errorf("%w: line %d %q", errs.ErrInvalidGroupCode, r.line, codeLine)
	}
	typ, err := TypeOf(code)
	if err != nil {
		return Pair{}, fmt.Errorf("line %d: %w", r.line, err)
	}

	value, err := r.readLine()
	if err != nil {
		return Pair{}, unexpected(err)
	}
	if typ == TypeString {
		decoded, err := r.dec.String(value)
		if err != nil {
			return Pair{}, fmt.Errorf("%w: line %d: %w", errs.ErrInvalidDXFValue, r.line, err)
		}

		return String(code, decoded), nil
	}

	p, err := parseValue(code, typ, strings.TrimSpace(value))
	if err != nil {
		return Pair{}, fmt.Errorf("line %d: %w", r.line, err)
	}

	return p, nil
}

func (r *Reader) nextBinary() (Pair, error) {
	var head [2]byte
	if _, err := io.ReadFull(r.r, head[:]); err != nil {
		return Pair{}, err
	}
	code := int(int16(r.engine.Uint16(head[:])))
	typ, err := TypeOf(code)
	if err != nil {
		return Pair{}, err
	}

	switch typ {
	case TypeDouble:
		b, err := r.fixed(8)
		if err != nil {
			return Pair{}, err
		}

		return Double(code, math.Float64frombits(r.engine.Uint64(b))), nil
	case TypeInt16:
		b, err := r.fixed(2)
		if err != nil {
			return Pair{}, err
		}

		return Int(code, int64(int16(r.engine.Uint16(b)))), nil
	case TypeInt32:
		b, err := r.fixed(4)
		if err != nil {
			return Pair{}, err
		}

		return Int(code, int64(int32(r.engine.Uint32(b)))), nil
	case TypeInt64:
		b, err := r.fixed(8)
		if err != nil {
			return Pair{}, err
		}

		return Int(code, int64(r.engine.Uint64(b))), nil
	case TypeBool:
		b, err := r.fixed(1)
		if err != nil {
			return Pair{}, err
		}

		return Bool(code, b[0] != 0), nil
	case TypeBinary:
		n, err := r.r.ReadByte()
		if err != nil {
			return Pair{}, unexpected(err)
		}
		b, err := r.fixed(int(n))
		if err != nil {
			return Pair{}, err
		}

		return Binary(code, b), nil
	}

	raw, err := r.r.ReadBytes(0)
	if err != nil {
		return Pair{}, unexpected(err)
	}
	raw = raw[:len(raw)-1]
	if typ == TypeHandle {
		return parseValue(code, typ, string(raw))
	}
	s, err := r.dec.Bytes(raw)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: code %d: %w", errs.ErrInvalidDXFValue, code, err)
	}

	return String(code, string(s)), nil
}

func (r *Reader) fixed(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, unexpected(err)
	}

	return b, nil
}

// unexpected turns a clean EOF inside a pair into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

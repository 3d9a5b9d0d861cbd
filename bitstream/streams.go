package bitstream

import (
	"errors"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

// Streams splits one object record into its data, string and handle streams.
//
// Before R2007 strings are stored inline in the data stream. From R2007 they live in a
// separate stream located backwards from the bit just before the handle stream.
type Streams struct {
	Data    *Reader
	Text    *Reader
	Handles *Reader
	noText  bool
}

// SplitStreams builds the three cursors for a record whose data stream is positioned in data,
// whose handle stream starts at handleStart and whose record body ends at end (both in bits).
// The data reader is cloned; the caller's cursor is left untouched.
func SplitStreams(data *Reader, handleStart, end int64) *Streams {
	s := &Streams{Data: data.Clone()}

	s.Handles = data.Clone()
	s.Handles.SetLimitInBits(end)
	s.Handles.SetPositionInBits(handleStart)

	if data.Version().Before(format.VersionR2007) {
		s.Data.SetLimitInBits(handleStart)
		s.Text = s.Data

		return s
	}

	text := data.Clone()
	if text.SetPositionByFlag(handleStart - 1) {
		s.Text = text
		s.Data.SetLimitInBits(text.PositionInBits())
	} else {
		s.noText = true
		s.Data.SetLimitInBits(handleStart - 1)
		if text.Err() != nil {
			s.Text = text
		}
	}

	return s
}

// NewInlineStreams uses one cursor for all three streams.
func NewInlineStreams(r *Reader) *Streams {
	return &Streams{Data: r, Text: r, Handles: r}
}

// Version returns the format version of the record.
func (s *Streams) Version() format.Version { return s.Data.Version() }

// ReadText reads a string from the string stream.
func (s *Streams) ReadText() string {
	if s.noText {
		return ""
	}

	return s.Text.ReadText()
}

// ReadHandleRef reads a handle from the handle stream, resolved against ref.
func (s *Streams) ReadHandleRef(ref uint64) uint64 {
	return s.Handles.ReadHandleRef(ref)
}

// ReadColor reads a CMC whose names come from the string stream.
func (s *Streams) ReadColor() Color {
	c := Color{Index: s.Data.ReadBitShort()}
	if s.Version().Before(format.VersionR2004) {
		return c
	}

	c.RGB = uint32(s.Data.ReadBitLong())
	c.Flags = s.Data.ReadRawChar()
	if c.Flags&ColorHasName != 0 {
		c.Name = s.ReadText()
	}
	if c.Flags&ColorHasBookName != 0 {
		c.BookName = s.ReadText()
	}

	return c
}

// Err returns the first error from any stream.
func (s *Streams) Err() error {
	for _, r := range []*Reader{s.Data, s.Text, s.Handles} {
		if r != nil && r.Err() != nil {
			return r.Err()
		}
	}

	return nil
}

// StreamsWriter is the encoding dual of Streams.
type StreamsWriter struct {
	Data    *Writer
	Text    *Writer
	Handles *Writer

	// ObjectBits is the record size in bits from the type to the handle stream. R13 and R14
	// records store it inside the data stream after their common head.
	ObjectBits uint32

	version format.Version
}

// NewStreamsWriter creates writers for one object record.
func NewStreamsWriter(version format.Version) *StreamsWriter {
	s := &StreamsWriter{
		Data:    NewWriter(version),
		Handles: NewWriter(version),
		version: version,
	}
	if version.Before(format.VersionR2007) {
		s.Text = s.Data
	} else {
		s.Text = NewWriter(version)
	}

	return s
}

// SetCodePage sets the code page on every stream.
func (s *StreamsWriter) SetCodePage(id uint16) {
	enc := CodePageEncoding(id)
	s.Data.SetCodePage(enc)
	s.Text.SetCodePage(enc)
	s.Handles.SetCodePage(enc)
}

// WriteText writes a string to the string stream.
func (s *StreamsWriter) WriteText(v string) {
	s.Text.WriteText(v)
}

// WriteHandle writes a handle reference to the handle stream.
func (s *StreamsWriter) WriteHandle(code uint8, value uint64) {
	s.Handles.WriteHandle(code, value)
}

// WriteColor writes a CMC whose names go to the string stream.
func (s *StreamsWriter) WriteColor(c Color) {
	s.Data.WriteBitShort(c.Index)
	if s.version.Before(format.VersionR2004) {
		return
	}

	flags := c.Flags &^ (ColorHasName | ColorHasBookName)
	if c.Name != "" {
		flags |= ColorHasName
	}
	if c.BookName != "" {
		flags |= ColorHasBookName
	}
	s.Data.WriteBitLong(int32(c.RGB))
	s.Data.WriteRawChar(flags)
	if c.Name != "" {
		s.WriteText(c.Name)
	}
	if c.BookName != "" {
		s.WriteText(c.BookName)
	}
}

// Body merges the data and string streams into one writer ending where the handle stream
// starts. From R2007 the string stream is followed by its size fields and presence flag.
func (s *StreamsWriter) Body() (*Writer, error) {
	if s.version.Before(format.VersionR2007) {
		return s.Data, s.Data.Err()
	}

	body := NewWriter(s.version)
	body.WriteBitsFrom(s.Data)

	size := s.Text.PositionInBits()
	if size == 0 {
		body.WriteBit(false)
		return body, errors.Join(body.Err(), s.Text.Err())
	}
	if size >= 1<<31 {
		return nil, errs.ErrTextTooLong
	}

	body.WriteBitsFrom(s.Text)
	if size >= 0x8000 {
		body.WriteRawShort(int16(uint16(size >> 15)))
		body.WriteRawShort(int16(uint16(size&0x7FFF) | 0x8000))
	} else {
		body.WriteRawShort(int16(uint16(size)))
	}
	body.WriteBit(true)

	return body, body.Err()
}

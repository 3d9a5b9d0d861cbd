// Package errs defines the sentinel errors returned by dwgkit packages and the two typed
// errors that scope a failure to a section.
//
// Callers should match with errors.Is against the sentinels and errors.As against
// *StructuralError or *DecodeError when they need the section name.
package errs

import (
	"errors"
	"fmt"
)

// Bitstream errors.
var (
	ErrEndOfStream       = errors.New("read past end of stream")
	ErrInvalidBitCode    = errors.New("invalid packed bit code")
	ErrInvalidSentinel   = errors.New("sentinel mismatch")
	ErrInvalidHandleCode = errors.New("invalid handle reference code")
	ErrTextTooLong       = errors.New("text length exceeds encodable range")
	ErrNegativeSeek      = errors.New("seek to negative position")
)

// Compression errors.
var (
	ErrInvalidOpcode     = errors.New("invalid compression opcode")
	ErrInputOverrun      = errors.New("compressed input overrun")
	ErrOutputOverrun     = errors.New("decompressed output overrun")
	ErrLookbehindOverrun = errors.New("back-reference before start of output")
	ErrShortInput        = errors.New("input too short to compress")
	ErrSizeMismatch      = errors.New("decompressed size mismatch")
)

// Container structure errors.
var (
	ErrUnsupportedVersion  = errors.New("unsupported file version")
	ErrInvalidFileHeader   = errors.New("invalid file header")
	ErrInvalidPageHeader   = errors.New("invalid page header")
	ErrInvalidPageType     = errors.New("unexpected page type")
	ErrPageNotFound        = errors.New("page not found in page map")
	ErrSectionNotFound     = errors.New("section not found")
	ErrInvalidSectionMap   = errors.New("invalid section map")
	ErrTruncatedPage       = errors.New("page extends past end of file")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrCRCMismatch         = errors.New("crc mismatch")
	ErrInvalidSectionSize  = errors.New("invalid section size")
	ErrMissingMandatory    = errors.New("mandatory section missing")
	ErrEncryptedSection    = errors.New("encrypted sections are not supported")
	ErrReedSolomonTooShort = errors.New("reed-solomon buffer too short")
)

// Handle map errors.
var (
	ErrZeroHandleDelta      = errors.New("zero handle delta")
	ErrDuplicateHandle      = errors.New("duplicate handle")
	ErrNonIncreasingHandle  = errors.New("handle not strictly increasing")
	ErrInvalidHandleMapSize = errors.New("invalid handle map block size")
)

// Object graph errors.
var (
	ErrUnknownObjectType  = errors.New("unknown object type")
	ErrInvalidObjectSize  = errors.New("invalid object size")
	ErrUnresolvedHandle   = errors.New("unresolved handle")
	ErrUnexpectedRecord   = errors.New("handle resolves to unexpected record type")
	ErrOwnershipCycle     = errors.New("entity chain cycle")
	ErrRecordNotEncodable = errors.New("record has no encoder")
	ErrHandleMismatch     = errors.New("record handle differs from handle map")
)

// DXF errors.
var (
	ErrInvalidGroupCode = errors.New("invalid dxf group code")
	ErrInvalidDXFValue  = errors.New("invalid dxf value")
)

// Writer errors.
var (
	ErrVersionNotWritable = errors.New("version cannot be written")
	ErrNilDocument        = errors.New("nil document")
	ErrInvalidOption      = errors.New("invalid option")
)

// StructuralError reports a container-level failure such as a bad sentinel or truncated page.
// It is fatal when it affects a mandatory section.
type StructuralError struct {
	Section string
	Err     error
}

func (e *StructuralError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("structural error: %v", e.Err)
	}

	return fmt.Sprintf("structural error in %s: %v", e.Section, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed primitive or compression stream. It aborts decoding of the
// current section or object only.
type DecodeError struct {
	Section string
	Offset  int64
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error in %s at 0x%X: %v", e.Section, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Structural wraps err as a StructuralError for section.
func Structural(section string, err error) error {
	if err == nil {
		return nil
	}

	return &StructuralError{Section: section, Err: err}
}

// Decode wraps err as a DecodeError for section at offset.
func Decode(section string, offset int64, err error) error {
	if err == nil {
		return nil
	}

	return &DecodeError{Section: section, Offset: offset, Err: err}
}

// IsStructural reports whether err is or wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// Package handlemap encodes and decodes the AcDb:Handles section, the table that maps every
// object handle to the offset of its record in the objects stream.
//
// The table is a run of blocks:
//
//	+---------+------------------------------------+---------+
//	| size BE | (UMC handle delta, MC offset delta)* | CRC BE  |
//	+---------+------------------------------------+---------+
//
// size counts itself and the pairs but not the CRC, and never exceeds MaxBlockSize. Handle
// and offset accumulators restart at zero in every block. A block of size 2 ends the table.
package handlemap

import (
	"fmt"
	"slices"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/internal/collision"
	"github.com/arloliu/dwgkit/internal/pool"
	"github.com/arloliu/dwgkit/section"
)

const (
	// MaxBlockSize is the largest block size value, including the two size bytes.
	MaxBlockSize = 2032

	terminatorSize = 2
	crcSize        = 2
	maxEntrySize   = 20
)

// Entry maps a handle to the offset of its record.
type Entry struct {
	Handle uint64
	Offset int64
}

// Map is a decoded handle map. Entries are kept in ascending handle order.
type Map struct {
	entries []Entry
	tracker *collision.Tracker
}

// New builds a map from entries, sorted by handle. Handle zero and duplicate handles are
// rejected.
func New(entries []Entry) (*Map, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int {
		switch {
		case a.Handle < b.Handle:
			return -1
		case a.Handle > b.Handle:
			return 1
		default:
			return 0
		}
	})

	m := &Map{entries: sorted, tracker: collision.NewTracker(len(sorted))}
	for _, e := range sorted {
		if e.Handle == 0 {
			return nil, errs.ErrZeroHandleDelta
		}
		if err := m.tracker.Track(e.Handle, e.Offset); err != nil {
			return nil, fmt.Errorf("handle 0x%X: %w", e.Handle, err)
		}
	}

	return m, nil
}

// Entries returns the entries in ascending handle order. The slice must not be modified.
func (m *Map) Entries() []Entry {
	return m.entries
}

// Offset returns the record offset of handle.
func (m *Map) Offset(handle uint64) (int64, bool) {
	return m.tracker.Offset(handle)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Rebase returns a copy of the map with delta added to every offset.
//
// Returns:
//   - *Map: the shifted map
//   - error: errs.ErrNegativeSeek when an offset drops below zero, or the tracker error of a
//     handle the copy cannot accept
func (m *Map) Rebase(delta int64) (*Map, error) {
	out := &Map{entries: make([]Entry, len(m.entries)), tracker: collision.NewTracker(len(m.entries))}
	for i, e := range m.entries {
		e.Offset += delta
		if e.Offset < 0 {
			return nil, fmt.Errorf("handle 0x%X: offset %d: %w", e.Handle, e.Offset, errs.ErrNegativeSeek)
		}
		if err := out.tracker.Track(e.Handle, e.Offset); err != nil {
			return nil, fmt.Errorf("handle 0x%X: %w", e.Handle, err)
		}
		out.entries[i] = e
	}

	return out, nil
}

// Config controls how Decode reports problems.
type Config struct {
	Diagnostics     *diag.Collector
	StrictChecksums bool
}

// Decode parses a handle map section.
//
// Zero handle deltas, duplicate handles and handles that go backwards are reported through
// cfg.Diagnostics and skipped. A CRC mismatch is an integrity warning unless StrictChecksums
// is set.
//
// Returns:
//   - *Map: the accepted entries
//   - error: ErrInvalidHandleMapSize (or a CRC error in strict mode) wrapped with the block
//     position
func Decode(data []byte, cfg Config) (*Map, error) {
	engine := endian.GetBigEndianEngine()
	m := &Map{tracker: collision.NewTracker(len(data) / 4)}

	pos := 0
	for {
		if len(data)-pos < terminatorSize {
			cfg.Diagnostics.Warn(diag.KindStructural, format.SectionHandles, 0, errs.ErrInvalidHandleMapSize,
				"handle map ends at 0x%X without a terminator block", pos)

			return m, nil
		}

		size := int(engine.Uint16(data[pos:]))
		if size == terminatorSize {
			return m, nil
		}
		if size < terminatorSize || size > MaxBlockSize || pos+size+crcSize > len(data) {
			return nil, fmt.Errorf("%w: block at 0x%X declares %d bytes", errs.ErrInvalidHandleMapSize, pos, size)
		}

		block := data[pos : pos+size]
		stored := engine.Uint16(data[pos+size:])
		if crc := section.CRC16(section.CRC16Seed, block); crc != stored {
			err := fmt.Errorf("%w: block at 0x%X stored 0x%04X computed 0x%04X", errs.ErrCRCMismatch, pos, stored, crc)
			if cfg.StrictChecksums {
				return nil, err
			}
			cfg.Diagnostics.Warn(diag.KindIntegrity, format.SectionHandles, 0, err, "handle map block crc")
		}

		if err := m.decodeBlock(block[terminatorSize:], pos, cfg.Diagnostics); err != nil {
			return nil, err
		}

		pos += size + crcSize
	}
}

func (m *Map) decodeBlock(pairs []byte, pos int, d *diag.Collector) error {
	r := bitstream.NewReader(pairs, format.VersionUnknown)

	var handle uint64
	var offset int64
	for r.Position() < int64(len(pairs)) {
		delta := r.ReadUnsignedModularChar()
		offset += r.ReadModularChar()
		if err := r.Err(); err != nil {
			return fmt.Errorf("%w: block at 0x%X: %w", errs.ErrInvalidHandleMapSize, pos, err)
		}

		if delta == 0 {
			d.Warn(diag.KindUnresolvedReference, format.SectionHandles, handle, errs.ErrZeroHandleDelta,
				"zero handle delta in block at 0x%X", pos)

			continue
		}
		handle += delta

		if err := m.tracker.Track(handle, offset); err != nil {
			d.Warn(diag.KindStructural, format.SectionHandles, handle, err, "handle map entry skipped")
			continue
		}
		m.entries = append(m.entries, Entry{Handle: handle, Offset: offset})
	}

	return nil
}

// Encode writes the map as a handle map section, re-deriving the deltas from the sorted
// entries and splitting them into blocks of at most MaxBlockSize bytes.
func (m *Map) Encode() []byte {
	engine := endian.GetBigEndianEngine()
	buf := pool.GetPageBuffer()
	defer pool.PutPageBuffer(buf)

	handles, releaseHandles := pool.GetUint64Slice(len(m.entries))
	defer releaseHandles()
	offsets, releaseOffsets := pool.GetInt64Slice(len(m.entries))
	defer releaseOffsets()
	for i, e := range m.entries {
		handles[i] = e.Handle
		offsets[i] = e.Offset
	}

	block := make([]byte, terminatorSize, MaxBlockSize+crcSize)
	var lastHandle uint64
	var lastOffset int64

	flush := func() {
		engine.PutUint16(block, uint16(len(block)))
		block = engine.AppendUint16(block, section.CRC16(section.CRC16Seed, block))
		buf.MustWrite(block)
		block = block[:terminatorSize]
		lastHandle, lastOffset = 0, 0
	}

	for i := range handles {
		if len(block)+maxEntrySize > MaxBlockSize {
			flush()
		}
		block = bitstream.AppendUnsignedModularChar(block, handles[i]-lastHandle)
		block = bitstream.AppendModularChar(block, offsets[i]-lastOffset)
		lastHandle, lastOffset = handles[i], offsets[i]
	}
	if len(block) > terminatorSize {
		flush()
	}
	flush()

	return slices.Clone(buf.Bytes())
}

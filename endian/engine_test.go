package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngines(t *testing.T) {
	le := GetLittleEndianEngine()
	be := GetBigEndianEngine()

	buf := le.AppendUint32(nil, 0x4163043B)
	require.Equal(t, []byte{0x3B, 0x04, 0x63, 0x41}, buf)

	buf = be.AppendUint16(nil, 0x07F2)
	require.Equal(t, []byte{0x07, 0xF2}, buf)

	require.Equal(t, binary.LittleEndian, le)
	require.Equal(t, binary.BigEndian, be)
}

func TestUintAt(t *testing.T) {
	le := GetLittleEndianEngine()
	buf := []byte{1, 0, 0, 0, 0, 0, 0, 0, 2}

	v16, ok := Uint16At(le, buf, 0)
	require.True(t, ok)
	require.Equal(t, uint16(1), v16)

	v32, ok := Uint32At(le, buf, 5)
	require.True(t, ok)
	require.Equal(t, uint32(0x02000000), v32)

	_, ok = Uint32At(le, buf, 6)
	require.False(t, ok)

	v64, ok := Uint64At(le, buf, 0)
	require.True(t, ok)
	require.Equal(t, uint64(1), v64)

	_, ok = Uint64At(le, buf, 2)
	require.False(t, ok)

	_, ok = Uint16At(le, buf, -1)
	require.False(t, ok)
}

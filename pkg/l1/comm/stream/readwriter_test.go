package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	packets := [][]byte{[]byte("walk"), {}, bytes.Repeat([]byte{0xa5}, 300)}
	for _, pkt := range packets {
		require.NoError(t, rw.WritePacket(pkt))
	}
	require.Equal(t, []byte{4, 0, 0, 0, 'w', 'a', 'l', 'k'}, buf.Bytes()[:8])
	for _, pkt := range packets {
		actual, err := rw.ReadPacket()
		require.NoError(t, err)
		require.Equal(t, pkt, actual)
	}
	_, err := rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadPacketErrors(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(MaxPacketSize+1))
	_, err := New(&buf).ReadPacket()
	require.Error(t, err)

	buf.Reset()
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	buf.Write([]byte{1, 2})
	_, err = New(&buf).ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestWritePacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, New(&buf).WritePacket(make([]byte, MaxPacketSize+1)))
	require.Zero(t, buf.Len())
}

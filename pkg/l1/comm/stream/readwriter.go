// Package stream frames packets over a byte stream, e.g. a serial port or
// a TCP connection. Every packet is preceded by its length as a
// little-endian uint32.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPacketSize limits the size of a received packet.
const MaxPacketSize = 1 << 20

const headerSize = 4

// ReadWriter is a comm.PacketReadWriter on a byte stream.
type ReadWriter struct {
	Stream io.ReadWriter
}

// New wraps s.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{Stream: s}
}

// ReadPacket returns io.EOF only when the stream ends on a packet
// boundary.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(p.Stream, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet of %d bytes exceeds %d", size, MaxPacketSize)
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.Stream, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket writes the header and the payload in one Write, so packets
// from concurrent writers don't interleave.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return fmt.Errorf("packet of %d bytes exceeds %d", len(pkt), MaxPacketSize)
	}
	frame := make([]byte, headerSize+len(pkt))
	binary.LittleEndian.PutUint32(frame, uint32(len(pkt)))
	copy(frame[headerSize:], pkt)
	_, err := p.Stream.Write(frame)
	return err
}

// Close closes the stream if it is an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.Stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

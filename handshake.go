package scrcpy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// CodecH264 is ASCII "h264" packed big-endian, as announced by the scrcpy
// server's codec metadata.
const CodecH264 = 0x68323634

const (
	deviceNameSize  = 64
	codecMetaSize   = 12 // codec_id(4) + width(4) + height(4)
	frameHeaderSize = 12 // pts_and_flags(8) + packet_size(4)
)

// Handshake is the fixed preamble the scrcpy server sends exactly once per
// session, before any video packet.
type Handshake struct {
	DeviceName string
	CodecID    uint32
	Width      uint32
	Height     uint32
}

// ReadHandshake consumes the tunnel-forward ack byte, the 64-byte device
// name and the codec metadata. All fields are read with io.ReadFull, so
// partial reads from the transport are retried rather than failed.
//
// The device name is informational only: the bytes up to the first NUL, or
// all 64 when none is present.
func ReadHandshake(r io.Reader) (*Handshake, error) {
	var ack [1]byte
	if _, err := io.ReadFull(r, ack[:]); err != nil {
		return nil, fmt.Errorf("scrcpy: read ack byte: %w", err)
	}

	name := make([]byte, deviceNameSize)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("scrcpy: read device name: %w", err)
	}
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	var meta [codecMetaSize]byte
	if _, err := io.ReadFull(r, meta[:]); err != nil {
		return nil, fmt.Errorf("scrcpy: read codec metadata: %w", err)
	}

	return &Handshake{
		DeviceName: string(name),
		CodecID:    binary.BigEndian.Uint32(meta[0:4]),
		Width:      binary.BigEndian.Uint32(meta[4:8]),
		Height:     binary.BigEndian.Uint32(meta[8:12]),
	}, nil
}

package websocket

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// Opcode is the frame type in the low nibble of the first header byte.
type Opcode byte

// Frame opcodes (RFC 6455 section 5.2).
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(0x%X)", byte(o))
	}
}

// IsControl reports whether o is a control opcode.
func (o Opcode) IsControl() bool {
	return o&0x8 != 0
}

// Header bits and length markers.
const (
	finBit      = 0x80
	rsvBits     = 0x70
	opcodeMask  = 0x0F
	maskBit     = 0x80
	lengthMask  = 0x7F
	length16    = 126
	length64    = 127
	maxLength7  = 125
	maxLength16 = math.MaxUint16

	// maxControlPayload is the largest payload a control frame may carry.
	maxControlPayload = 125
)

// Frame is a decoded WebSocket frame. Payload is already unmasked.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Masked  bool
	Payload []byte
}

// NewMask returns a random masking key.
func NewMask() ([4]byte, error) {
	var mask [4]byte
	if _, err := rand.Read(mask[:]); err != nil {
		return mask, fmt.Errorf("generating mask: %w", err)
	}
	return mask, nil
}

// EncodeFrame returns a final, masked frame carrying payload.
func EncodeFrame(op Opcode, payload []byte, mask [4]byte) []byte {
	return AppendFrame(make([]byte, 0, frameHeaderLen(len(payload))+len(payload)), op, payload, mask)
}

// AppendFrame appends a final, masked frame to dst and returns the
// extended slice.
//
// Header layout:
//
//	byte 0: FIN(1) RSV(3) opcode(4)
//	byte 1: MASK(1) length(7)   length 0-125 inline
//	        126 + uint16         length up to 65535
//	        127 + uint64         anything larger
//	then the 4-byte masking key and the masked payload.
func AppendFrame(dst []byte, op Opcode, payload []byte, mask [4]byte) []byte {
	dst = append(dst, finBit|byte(op))

	n := len(payload)
	switch {
	case n <= maxLength7:
		dst = append(dst, maskBit|byte(n))
	case n <= maxLength16:
		dst = append(dst, maskBit|length16)
		dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, maskBit|length64)
		dst = binary.BigEndian.AppendUint64(dst, uint64(n))
	}

	dst = append(dst, mask[:]...)
	start := len(dst)
	dst = append(dst, payload...)
	applyMask(dst[start:], mask)
	return dst
}

// frameHeaderLen is the header size of a masked frame with an n-byte payload.
func frameHeaderLen(n int) int {
	switch {
	case n <= maxLength7:
		return 2 + 4
	case n <= maxLength16:
		return 4 + 4
	default:
		return 10 + 4
	}
}

// ParseFrame decodes the frame at the start of b and returns it with the
// number of bytes consumed.
//
// ErrIncompleteFrame means b holds only part of a frame; b is left
// untouched. Masked payloads are unmasked in place, and the returned
// payload aliases b.
func ParseFrame(b []byte) (Frame, int, error) {
	if len(b) < 2 {
		return Frame{}, 0, ErrIncompleteFrame
	}

	if b[0]&rsvBits != 0 {
		return Frame{}, 0, fmt.Errorf("%w: reserved bits set (0x%02X)", ErrInvalidFrame, b[0])
	}

	f := Frame{
		Fin:    b[0]&finBit != 0,
		Opcode: Opcode(b[0] & opcodeMask),
		Masked: b[1]&maskBit != 0,
	}

	length := uint64(b[1] & lengthMask)
	pos := 2
	switch length {
	case length16:
		if len(b) < 4 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		length = uint64(binary.BigEndian.Uint16(b[2:4]))
		pos = 4
	case length64:
		if len(b) < 10 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		length = binary.BigEndian.Uint64(b[2:10])
		pos = 10
	}

	if f.Opcode.IsControl() && (length > maxControlPayload || !f.Fin) {
		return Frame{}, 0, fmt.Errorf("%w: fragmented or oversized %s frame", ErrInvalidFrame, f.Opcode)
	}
	if length > math.MaxInt32 {
		return Frame{}, 0, fmt.Errorf("%w: length %d", ErrInvalidFrame, length)
	}

	var mask [4]byte
	if f.Masked {
		if len(b) < pos+4 {
			return Frame{}, 0, ErrIncompleteFrame
		}
		copy(mask[:], b[pos:pos+4])
		pos += 4
	}

	end := pos + int(length)
	if len(b) < end {
		return Frame{}, 0, ErrIncompleteFrame
	}

	f.Payload = b[pos:end]
	if f.Masked {
		applyMask(f.Payload, mask)
	}
	return f, end, nil
}

func applyMask(b []byte, mask [4]byte) {
	for i := range b {
		b[i] ^= mask[i&3]
	}
}

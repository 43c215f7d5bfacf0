package payload

import "encoding/binary"

// FrameSize is the length of every command frame regardless of opcode.
const FrameSize = 11

// Opcodes understood by the node firmware.
const (
	OpBlinkAll byte = 0x02
	OpChase    byte = 0x03
)

// blinkPeriod is the fastest blink rate; blink-all always uses it.
const blinkPeriod uint16 = 1

// Frame is one encoded command.
type Frame [FrameSize]byte

// Bytes returns the frame as a slice suitable for a characteristic write.
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameSize)
	copy(b, f[:])
	return b
}

// Opcode returns byte 0.
func (f Frame) Opcode() byte { return f[0] }

// Duration returns the duration field.
func (f Frame) Duration() uint16 { return binary.LittleEndian.Uint16(f[4:6]) }

// Pixels returns the pixel count field.
func (f Frame) Pixels() uint16 { return binary.LittleEndian.Uint16(f[6:8]) }

// Offset returns the timing offset field.
func (f Frame) Offset() uint16 { return binary.LittleEndian.Uint16(f[8:10]) }

// RouteID returns the route-id tag.
func (f Frame) RouteID() uint8 { return f[10] }

// Color is the RGB triple carried in bytes 1-3.
type Color struct {
	R, G, B uint8
}

// DefaultColor is the installation colour used when none is configured.
var DefaultColor = Color{R: 0, G: 128, B: 255}

// Codec builds frames with a fixed colour. The zero value encodes black;
// use NewCodec to pick the installation colour.
type Codec struct {
	color Color
}

// NewCodec returns a Codec that writes c into every frame.
func NewCodec(c Color) Codec {
	return Codec{color: c}
}

// Color returns the colour this codec encodes.
func (c Codec) Color() Color { return c.color }

// EncodeChase builds a chase frame (opcode 0x03).
func (c Codec) EncodeChase(duration, pixels, offset uint16, routeID uint8) Frame {
	return c.encode(OpChase, duration, pixels, offset, routeID)
}

// EncodeBlinkAll builds a blink-all frame (opcode 0x02). The period field is
// always 1 and the offset always 0.
func (c Codec) EncodeBlinkAll(duration uint16, routeID uint8) Frame {
	return c.encode(OpBlinkAll, duration, blinkPeriod, 0, routeID)
}

func (c Codec) encode(op byte, duration, word, offset uint16, routeID uint8) Frame {
	var f Frame
	f[0] = op
	f[1] = c.color.R
	f[2] = c.color.G
	f[3] = c.color.B
	binary.LittleEndian.PutUint16(f[4:6], duration)
	binary.LittleEndian.PutUint16(f[6:8], word)
	binary.LittleEndian.PutUint16(f[8:10], offset)
	f[10] = routeID
	return f
}

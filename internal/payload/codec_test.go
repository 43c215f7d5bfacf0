package payload

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeChase_Layout(t *testing.T) {
	codec := NewCodec(DefaultColor)

	got := codec.EncodeChase(4000, 3, 2000, 7)
	want := []byte{0x03, 0, 128, 255, 0xA0, 0x0F, 0x03, 0x00, 0xD0, 0x07, 7}

	if !bytes.Equal(got[:], want) {
		t.Errorf("EncodeChase() = % x, want % x", got[:], want)
	}
}

func TestEncodeChase_FieldsAcrossRange(t *testing.T) {
	codec := NewCodec(Color{R: 1, G: 2, B: 3})

	values := []uint16{0, 1, 0x00FF, 0x0100, 0x7FFF, 0x8000, 0xFFFE, 0xFFFF}
	routeIDs := []uint8{0, 1, 10, 11, 0x7F, 0x80, 0xFF}

	for _, d := range values {
		for _, p := range values {
			for _, o := range values {
				for _, r := range routeIDs {
					f := codec.EncodeChase(d, p, o, r)

					if len(f) != FrameSize {
						t.Fatalf("frame length = %d, want %d", len(f), FrameSize)
					}
					if f[0] != OpChase {
						t.Fatalf("opcode = %#x, want %#x", f[0], OpChase)
					}
					if got := binary.LittleEndian.Uint16(f[4:6]); got != d {
						t.Fatalf("duration = %d, want %d", got, d)
					}
					if got := binary.LittleEndian.Uint16(f[6:8]); got != p {
						t.Fatalf("pixels = %d, want %d", got, p)
					}
					if got := binary.LittleEndian.Uint16(f[8:10]); got != o {
						t.Fatalf("offset = %d, want %d", got, o)
					}
					if f[10] != r {
						t.Fatalf("route id = %d, want %d", f[10], r)
					}
				}
			}
		}
	}
}

func TestEncodeBlinkAll(t *testing.T) {
	f := NewCodec(DefaultColor).EncodeBlinkAll(5000, 0)

	if f[0] != OpBlinkAll {
		t.Errorf("opcode = %#x, want %#x", f[0], OpBlinkAll)
	}
	if f.Duration() != 5000 {
		t.Errorf("duration = %d, want 5000", f.Duration())
	}
	if f[6] != 1 || f[7] != 0 {
		t.Errorf("period bytes = %d %d, want 1 0", f[6], f[7])
	}
	if f.Offset() != 0 {
		t.Errorf("offset = %d, want 0", f.Offset())
	}
	if f.RouteID() != 0 {
		t.Errorf("route id = %d, want 0", f.RouteID())
	}
}

func TestCodec_ColorIsFixed(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		want  Color
	}{
		{"default colour", NewCodec(DefaultColor), Color{0, 128, 255}},
		{"configured colour", NewCodec(Color{255, 10, 0}), Color{255, 10, 0}},
		{"zero value", Codec{}, Color{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, f := range []Frame{
				tt.codec.EncodeChase(1, 2, 3, 4),
				tt.codec.EncodeBlinkAll(1, 4),
			} {
				got := Color{f[1], f[2], f[3]}
				if got != tt.want {
					t.Errorf("colour = %+v, want %+v", got, tt.want)
				}
			}
		})
	}
}

func TestFrame_BytesIsACopy(t *testing.T) {
	f := NewCodec(DefaultColor).EncodeChase(1, 1, 1, 1)
	b := f.Bytes()
	b[0] = 0xFF

	if f[0] != OpChase {
		t.Error("mutating Bytes() changed the frame")
	}
}

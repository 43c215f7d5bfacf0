// Package payload encodes the fixed 11-byte command frame written to every
// LED node.
//
// Frame layout (all multi-byte fields little-endian):
//
//	byte  0     opcode (0x02 blink-all, 0x03 chase)
//	bytes 1-3   colour R, G, B
//	bytes 4-5   duration
//	bytes 6-7   pixel count (blink-all: period, always 1)
//	bytes 8-9   timing offset
//	byte  10    route-id tag
//
// Encoding is write-only; nodes never send frames back.
package payload

package obi

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// LittleEndianUint decodes up to 8 bytes as a little-endian integer. Missing
// high bytes are zero.
func LittleEndianUint(data []byte) uint64 {
	var tmp [8]byte
	copy(tmp[:], data)

	return binary.LittleEndian.Uint64(tmp[:])
}

// PutLittleEndian encodes the low n bytes of v in little-endian order.
func PutLittleEndian(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n && i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}

	return out
}

// HexString formats a little-endian byte slice as a hexadecimal number, most
// significant byte first.
func HexString(data []byte) string {
	if len(data) == 0 {
		return "0x0"
	}

	var sb strings.Builder
	sb.WriteString("0x")
	for i := len(data) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", data[i])
	}

	return sb.String()
}

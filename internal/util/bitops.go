package util

import "fmt"

// Slice16bits extracts the 16-bit slice of val starting at offsetBits,
// formatted as an immediate for mov/movk sequences.
func Slice16bits(val int64, offsetBits int) string {
	res := (val >> offsetBits) & 0xffff
	return fmt.Sprintf("#0x%04X", res)
}

// Align rounds addr up to the next multiple of alignment, which must
// be a power of two.
func Align(addr int, alignment int) int {
	return (addr + alignment - 1) &^ (alignment - 1)
}

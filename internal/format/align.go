package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// AlignUp returns n rounded up to a multiple of unit. unit must be positive.
//
// Example:
//
//	AlignUp(1, 8192)    = 8192
//	AlignUp(8192, 8192) = 8192
//	AlignUp(8193, 8192) = 16384
func AlignUp(n, unit int) int {
	if r := n % unit; r != 0 {
		return n + unit - r
	}
	return n
}

// BlockSizeFor returns the smallest multiple of unit able to hold a payload of
// size bytes plus one chunk header and the trailing sentinel.
func BlockSizeFor(size, unit int) int {
	return AlignUp(size+BlockOverhead, unit)
}

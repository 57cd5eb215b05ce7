package genome

// BasesPerByte is the number of 2-bit symbols packed into one byte.
const BasesPerByte = 4

// ReadByte packs the four bases starting at offset into a byte, two bits per
// base, the first base in the most significant pair. Bases past the end of
// the genome count as zero, so ReadByte(MustParse("ATCT"), 0) == 38.
func ReadByte(g Genome, offset int) uint8 {
	var b uint8
	for i := 0; i < BasesPerByte; i++ {
		b <<= 2
		if idx := offset + i; idx >= 0 && idx < len(g) {
			b |= uint8(g[idx]) & 0x03
		}
	}
	return b
}

// ReadByteLE packs the first four bases with the first base in the least
// significant pair.
func ReadByteLE(g Genome) uint8 {
	var b uint8
	n := min(len(g), BasesPerByte)
	for i := n - 1; i >= 0; i-- {
		b <<= 2
		b |= uint8(g[i]) & 0x03
	}
	return b
}

// ReadBytes decodes n consecutive bytes. Byte i is read from offset
// i*BasesPerByte.
func ReadBytes(g Genome, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = ReadByte(g, i*BasesPerByte)
	}
	return out
}

// ToFeature maps a byte onto [-1, 1) by reading it as a two's complement
// int8 and dividing by 128.
func ToFeature(b uint8) float64 {
	return float64(int8(b)) / 128.0
}

// ToUnit maps a byte onto [0, 1).
func ToUnit(b uint8) float64 {
	return float64(b) / 256.0
}

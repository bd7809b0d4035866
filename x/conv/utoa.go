package conv

// Utoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for uint64.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
		return buf[i:]
	}
	for n > 0 && i > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return buf[i:]
}

// U32 returns the decimal form of n.
func U32(n uint32) string {
	var buf [10]byte
	return string(Utoa(buf[:], uint64(n)))
}

// Size formats a byte count with the largest exact K, M or G suffix.
func Size(n uint64) string {
	var buf [20]byte
	suffix := ""
	switch {
	case n != 0 && n%(1<<30) == 0:
		n, suffix = n>>30, "G"
	case n != 0 && n%(1<<20) == 0:
		n, suffix = n>>20, "M"
	case n != 0 && n%(1<<10) == 0:
		n, suffix = n>>10, "K"
	}
	return string(Utoa(buf[:], n)) + suffix
}

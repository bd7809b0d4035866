package conv

// ParseU64 accepts decimal or 0x-prefixed hex, with an optional K, M or G
// suffix (binary multiples). Underscores are ignored.
func ParseU64(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var mul uint64 = 1
	switch s[len(s)-1] {
	case 'k', 'K':
		mul = 1 << 10
	case 'm', 'M':
		mul = 1 << 20
	case 'g', 'G':
		mul = 1 << 30
	}
	if mul != 1 {
		s = s[:len(s)-1]
	}
	base := uint64(10)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	if s == "" {
		return 0, false
	}
	var v uint64
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c == '_':
			continue
		case '0' <= c && c <= '9':
			d = uint64(c - '0')
		case base == 16 && 'a' <= c && c <= 'f':
			d = uint64(c-'a') + 10
		case base == 16 && 'A' <= c && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return 0, false
		}
		if v > (^uint64(0)-d)/base {
			return 0, false
		}
		v = v*base + d
		digits++
	}
	if digits == 0 || v > ^uint64(0)/mul {
		return 0, false
	}
	return v * mul, true
}

// ParseU32 is ParseU64 limited to 32 bits.
func ParseU32(s string) (uint32, bool) {
	v, ok := ParseU64(s)
	if !ok || v > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(v), true
}

package mathhelp

func Pow2(n uint) uint {
	return 1 << n
}

func Bool2int(b bool) int {
	if b {
		return 1
	}
	return 0
}

func BetweenInc(f, p, q int) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package strategy

// ema returns the last value of an exponential moving average seeded with the
// simple average of the first period values. ok is false when xs is too short.
func ema(xs []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(xs) < period {
		return 0, false
	}
	var sum float64
	for _, v := range xs[:period] {
		sum += v
	}
	value = sum / float64(period)
	alpha := 2.0 / (float64(period) + 1)
	for _, v := range xs[period:] {
		value += alpha * (v - value)
	}
	return value, true
}

func maxSlice(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minSlice(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

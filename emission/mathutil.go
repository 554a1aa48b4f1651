package emission

import "math"

func safeLog(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return math.Log(x)
}

func safeExp(x float64) float64 {
	if math.IsInf(x, -1) {
		return 0
	}
	return math.Exp(x)
}

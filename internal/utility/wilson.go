package utility

import "math"

// wilsonZ95 is z for a 95% confidence interval, fixed by spec §4.4.1.
const wilsonZ95 = 1.96

// WilsonLowerBound computes the Wilson score interval lower bound at 95%
// confidence for n observations with success proportion p, clamped to
// [0,1]. Returns 0 when n is 0 (spec §4.4.1).
func WilsonLowerBound(n int, p float64) float64 {
	if n <= 0 {
		return 0
	}
	nf := float64(n)
	z := wilsonZ95
	z2 := z * z

	numerator := p + z2/(2*nf) - z*math.Sqrt((p*(1-p)+z2/(4*nf))/nf)
	denominator := 1 + z2/nf
	score := numerator / denominator

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

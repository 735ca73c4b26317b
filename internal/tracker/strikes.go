package tracker

import "math"

// ATMStrike derives the at-the-money strike by rounding the underlying price
// to the nearest strike step.
func ATMStrike(price, step float64) float64 {
	return math.Round(price/step) * step
}

// Band returns the ordered strikes from ATM-width*step to ATM+width*step.
func Band(atm, step float64, width int) []float64 {
	band := make([]float64, 0, 2*width+1)
	for i := -width; i <= width; i++ {
		band = append(band, atm+float64(i)*step)
	}
	return band
}

// ClipToUniverse filters the band to strikes actually listed in the chain,
// preserving order. Near the edge of the chain this yields a short band,
// which downstream components treat as valid input.
func ClipToUniverse(band, known []float64) []float64 {
	listed := make(map[float64]bool, len(known))
	for _, s := range known {
		listed[s] = true
	}

	clipped := make([]float64, 0, len(band))
	for _, s := range band {
		if listed[s] {
			clipped = append(clipped, s)
		}
	}
	return clipped
}

// Package serp models organic click-through rate by search result position.
package serp

import "math"

// organicCTR holds the expected click-through rate for positions 1 to 10
var organicCTR = [...]float64{0.314, 0.245, 0.185, 0.136, 0.095, 0.062, 0.042, 0.031, 0.030, 0.029}

const decayRate = 0.1

// CTRForPosition returns the expected click-through rate for a rank position.
// Positions past the table decay exponentially from the position 10 value.
// Positions below 1 return 0.
func CTRForPosition(position int) float64 {
	switch {
	case position < 1:
		return 0
	case position <= len(organicCTR):
		return organicCTR[position-1]
	default:
		last := organicCTR[len(organicCTR)-1]
		return last * math.Exp(-decayRate*float64(position-len(organicCTR)))
	}
}

// CTRForRank is CTRForPosition for an optional position. Nil means not ranking.
func CTRForRank(position *int) float64 {
	if position == nil {
		return 0
	}
	return CTRForPosition(*position)
}

// InBand reports whether a position falls within 1..maxPos
func InBand(position *int, maxPos int) bool {
	return position != nil && *position >= 1 && *position <= maxPos
}

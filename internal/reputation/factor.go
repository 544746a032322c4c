package reputation

// PremiumFactor maps a 0-100 reputation score to a multiplicative premium
// factor in [0.70, 1.00]. Higher scores buy larger discounts; the mapping is
// non-increasing in score. This is the pricing-side twin of the discount
// percentage reported by Score - callers must not conflate the two: the
// discount percent is presentation, this factor is what the premium formula
// multiplies by.
func PremiumFactor(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var factor float64
	switch {
	case score >= 75:
		// Low Risk: 22-30% discount.
		factor = 1.0 - (0.22 + (score-75)/25*0.08)
	case score >= 50:
		// Medium Risk: 15-22% discount.
		factor = 1.0 - (0.15 + (score-50)/25*0.07)
	default:
		// High Risk: 0-15% discount.
		factor = 1.0 - score/50*0.15
	}

	// Round to cents-of-a-percent so equal scores always produce
	// bit-identical factors across call sites.
	return math2dp(factor)
}

func math2dp(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

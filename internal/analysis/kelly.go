package analysis

import "football-odds-engine/internal/mathutil"

// KellyStake is the bankroll share to stake at decimalOdds when the outcome's
// model probability is p, scaled by fraction (0.25 = quarter Kelly):
//
//	f = (p·d − 1) / (d − 1)
//
// Negative edges stake nothing and the full-Kelly share is capped at 1.
func KellyStake(p, decimalOdds, fraction float64) float64 {
	if decimalOdds <= 1 || p <= 0 || p >= 1 || !mathutil.IsFinite(decimalOdds) {
		return 0
	}
	full := (p*decimalOdds - 1) / (decimalOdds - 1)
	return mathutil.Clamp(full, 0, 1) * mathutil.Clamp(fraction, 0, 1)
}

package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk computes the absolute account-currency loss if stop is hit.
func PlannedRisk(units, entry, stop, quoteToAccountRate float64) float64 {
	// price move in quote currency per 1 unit of base
	move := abs(entry - stop)
	return units * move * quoteToAccountRate
}

// RR is reward over risk. A zero risk distance yields 0.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}

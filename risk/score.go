package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/smctrader/market"
)

// Level is the qualitative risk verdict.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelVeryHigh Level = "VERY_HIGH"
)

const (
	RecommendExecute  = "STRONG BUY/SELL - Execute Trade"
	RecommendConsider = "MODERATE - Consider Trade"
	RecommendAvoid    = "RISKY - Avoid Trade"
	RecommendNoTrade  = "DO NOT TRADE"
)

var fibLevels = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// Trade is the prepared order the scorer grades.
type Trade struct {
	Direction  market.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// Assessment is the composite grade of a Trade.
type Assessment struct {
	Score          int      `json:"risk_score"`
	Level          Level    `json:"risk_level"`
	Confidence     string   `json:"confidence"`
	Recommendation string   `json:"recommendation"`
	Factors        []string `json:"risk_factors"`
	RiskReward     float64  `json:"risk_reward_ratio"`
}

// Assess scores t against the 1H history it was prepared from and the POI
// candle that triggered it. The score is the floor of the weighted sum of
// five components: risk/reward (30), POI quality (25), structure (20),
// momentum (15) and confluence (10).
func Assess(t Trade, h1 []market.Candle, poi market.Candle) Assessment {
	var (
		total   float64
		factors []string
	)

	rr := RR(t.Entry, t.StopLoss, t.TakeProfit)
	switch {
	case rr >= 3:
		total += 30
		factors = append(factors, "Excellent R:R ratio (1:3+)")
	case rr >= 2:
		total += 20
		factors = append(factors, "Good R:R ratio (1:2+)")
	case rr >= 1.5:
		total += 10
		factors = append(factors, "Acceptable R:R ratio (1:1.5+)")
	default:
		factors = append(factors, "Poor R:R ratio (<1:1.5)")
	}

	switch q := POIQuality(poi); {
	case q >= 0.8:
		total += 25
		factors = append(factors, "Strong POI formation")
	case q >= 0.6:
		total += 15
		factors = append(factors, "Good POI formation")
	case q >= 0.4:
		total += 8
		factors = append(factors, "Weak POI formation")
	default:
		factors = append(factors, "Very weak POI formation")
	}

	switch s := StructureAlignment(h1, t.Direction); {
	case s >= 0.8:
		total += 20
		factors = append(factors, "Strong market structure")
	case s >= 0.6:
		total += 12
		factors = append(factors, "Good market structure")
	default:
		total += 5
		factors = append(factors, "Weak market structure")
	}

	switch m := Momentum(h1); {
	case m >= 0.7:
		total += 15
		factors = append(factors, "Strong momentum")
	case m >= 0.5:
		total += 10
		factors = append(factors, "Moderate momentum")
	default:
		total += 3
		factors = append(factors, "Weak momentum")
	}

	c := Confluence(h1, poi)
	total += c * 10
	if c >= 0.7 {
		factors = append(factors, "Multiple confluence factors")
	}

	score := int(math.Floor(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	a := verdict(score)
	a.Factors = factors
	a.RiskReward = math.Round(rr*100) / 100
	return a
}

// verdict maps a score onto its tier. Confidence offsets use integer division.
func verdict(score int) Assessment {
	a := Assessment{Score: score}
	switch {
	case score >= 80:
		a.Level = LevelLow
		a.Confidence = percent(min(99, 85+(score-80)/2))
		a.Recommendation = RecommendExecute
	case score >= 60:
		a.Level = LevelMedium
		a.Confidence = percent(min(85, 70+(score-60)/3))
		a.Recommendation = RecommendConsider
	case score >= 40:
		a.Level = LevelHigh
		a.Confidence = percent(min(70, 50+(score-40)/4))
		a.Recommendation = RecommendAvoid
	default:
		a.Level = LevelVeryHigh
		a.Confidence = percent(max(30, score))
		a.Recommendation = RecommendNoTrade
	}
	return a
}

func percent(n int) string {
	return fmt.Sprintf("%d%%", n)
}

// bodyRatio is body over range, 0 for a flat candle.
func bodyRatio(c market.Candle) float64 {
	r := c.Range()
	if r <= 0 {
		return 0
	}
	return c.Body() / r
}

// POIQuality grades the order block candle in [0, 1].
func POIQuality(poi market.Candle) float64 {
	score := 0.5

	ratio := bodyRatio(poi)
	if ratio > 0.7 {
		score += 0.3
	} else if ratio > 0.5 {
		score += 0.2
	}

	// rejection wick on the entry side
	if poi.Close > poi.Open {
		upper := poi.High - poi.Close
		lower := poi.Open - poi.Low
		if lower > upper*2 {
			score += 0.2
		}
	} else {
		upper := poi.High - poi.Open
		lower := poi.Close - poi.Low
		if upper > lower*2 {
			score += 0.2
		}
	}

	return math.Min(1, score)
}

// StructureAlignment is the fraction of the last five candles' consecutive
// pairs making higher-or-equal lows (BUY) or lower-or-equal highs (SELL).
func StructureAlignment(h1 []market.Candle, dir market.Direction) float64 {
	if len(h1) < 5 {
		return 0.5
	}
	recent := h1[len(h1)-5:]

	aligned := 0
	for i := 1; i < len(recent); i++ {
		if dir == market.Buy && recent[i].Low >= recent[i-1].Low {
			aligned++
		}
		if dir == market.Sell && recent[i].High <= recent[i-1].High {
			aligned++
		}
	}
	return math.Min(1, float64(aligned)/float64(len(recent)-1))
}

// Momentum is the average body/range of the last three candles times 1.5, capped at 1.
func Momentum(h1 []market.Candle) float64 {
	if len(h1) < 3 {
		return 0.5
	}
	recent := h1[len(h1)-3:]

	var sum float64
	for _, c := range recent {
		sum += bodyRatio(c)
	}
	return math.Min(1, sum/float64(len(recent))*1.5)
}

// Confluence is the fraction of the round number, prior S/R and Fibonacci
// checks that the POI low satisfies.
func Confluence(h1 []market.Candle, poi market.Candle) float64 {
	level := poi.Low

	hits := 0
	if IsRoundNumber(level) {
		hits++
	}
	if IsPreviousSR(level, h1) {
		hits++
	}
	if IsFibonacciLevel(level, h1) {
		hits++
	}
	return float64(hits) / 3
}

// IsRoundNumber checks the price at 5 decimal places for a trailing 00/50 or 000/500.
func IsRoundNumber(price float64) bool {
	s := fmt.Sprintf("%.5f", price)
	return strings.HasSuffix(s, "00") || strings.HasSuffix(s, "50") ||
		strings.HasSuffix(s, "000") || strings.HasSuffix(s, "500")
}

// IsPreviousSR reports whether price sits within 0.1% of a high or low of any
// candle older than the last three.
func IsPreviousSR(price float64, h1 []market.Candle) bool {
	if len(h1) <= 3 {
		return false
	}
	tol := price * 0.001
	for _, c := range h1[:len(h1)-3] {
		if abs(c.High-price) <= tol || abs(c.Low-price) <= tol {
			return true
		}
	}
	return false
}

// IsFibonacciLevel reports whether price lies within 2% of the last ten
// candles' range from one of the retracement levels.
func IsFibonacciLevel(price float64, h1 []market.Candle) bool {
	if len(h1) < 10 {
		return false
	}
	recent := h1[len(h1)-10:]

	hi, lo := recent[0].High, recent[0].Low
	for _, c := range recent[1:] {
		hi = math.Max(hi, c.High)
		lo = math.Min(lo, c.Low)
	}
	size := hi - lo
	tol := size * 0.02

	for _, f := range fibLevels {
		if abs(price-(lo+size*f)) <= tol {
			return true
		}
	}
	return false
}

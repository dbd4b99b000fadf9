package risk

import (
	"strconv"
	"strings"
	"testing"

	"github.com/rustyeddy/smctrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func h1Series() []market.Candle {
	return []market.Candle{
		{Time: 3600, Open: 115.0, High: 116.0, Low: 114.5, Close: 115.5},
		{Time: 7200, Open: 115.5, High: 117.0, Low: 115.0, Close: 116.5},
		{Time: 10800, Open: 116.5, High: 116.8, Low: 113.0, Close: 113.5},
		{Time: 14400, Open: 113.5, High: 114.0, Low: 113.2, Close: 113.3},
		{Time: 18000, Open: 113.3, High: 117.8, Low: 112.8, Close: 117.5},
	}
}

func TestAssess_BuyScenario(t *testing.T) {
	t.Parallel()

	h1 := h1Series()
	poi := h1[3]
	tr := Trade{
		Direction:  market.Buy,
		Entry:      poi.Low,
		StopLoss:   poi.Low * 0.9995,
		TakeProfit: poi.Low * 1.005,
	}

	a := Assess(tr, h1, poi)

	// 30 (rr 10) + 15 (poi 0.7) + 5 (structure 0.5) + 15 (momentum 0.94) + 3.33 (round number)
	assert.Equal(t, 68, a.Score)
	assert.Equal(t, LevelMedium, a.Level)
	assert.Equal(t, "72%", a.Confidence)
	assert.Equal(t, RecommendConsider, a.Recommendation)
	assert.InDelta(t, 10.0, a.RiskReward, 1e-9)
	assert.Equal(t, []string{
		"Excellent R:R ratio (1:3+)",
		"Good POI formation",
		"Weak market structure",
		"Strong momentum",
	}, a.Factors)
}

func TestAssess_PoorTrade(t *testing.T) {
	t.Parallel()

	flat := []market.Candle{
		{Open: 1.1003, High: 1.1010, Low: 1.0990, Close: 1.1004},
		{Open: 1.1004, High: 1.1009, Low: 1.0989, Close: 1.1003},
		{Open: 1.1003, High: 1.1008, Low: 1.0988, Close: 1.1004},
		{Open: 1.1004, High: 1.1007, Low: 1.0987, Close: 1.1003},
		{Open: 1.1003, High: 1.1006, Low: 1.0986, Close: 1.1004},
	}
	poi := market.Candle{Open: 1.10031, High: 1.10101, Low: 1.09901, Close: 1.10021}
	tr := Trade{Direction: market.Buy, Entry: 1.1000, StopLoss: 1.0990, TakeProfit: 1.1005}

	a := Assess(tr, flat, poi)

	// 0 (rr 0.5) + 8 (poi 0.5) + 5 (falling lows) + 3 (no bodies) + 3.33 (old low nearby)
	assert.Equal(t, 19, a.Score)
	assert.Equal(t, LevelVeryHigh, a.Level)
	assert.Equal(t, "30%", a.Confidence)
	assert.Equal(t, RecommendNoTrade, a.Recommendation)
	assert.Contains(t, a.Factors, "Poor R:R ratio (<1:1.5)")
	assert.Contains(t, a.Factors, "Weak momentum")
}

func TestVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score      int
		level      Level
		confidence string
	}{
		{100, LevelLow, "95%"},
		{80, LevelLow, "85%"},
		{79, LevelMedium, "76%"},
		{60, LevelMedium, "70%"},
		{59, LevelHigh, "54%"},
		{40, LevelHigh, "50%"},
		{39, LevelVeryHigh, "39%"},
		{10, LevelVeryHigh, "30%"},
		{0, LevelVeryHigh, "30%"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(strconv.Itoa(tt.score), func(t *testing.T) {
			t.Parallel()
			a := verdict(tt.score)
			assert.Equal(t, tt.level, a.Level)
			assert.Equal(t, tt.confidence, a.Confidence)
		})
	}
}

func TestVerdict_ConfidenceWithinTier(t *testing.T) {
	t.Parallel()

	bounds := map[Level][2]int{
		LevelLow:      {85, 99},
		LevelMedium:   {70, 85},
		LevelHigh:     {50, 70},
		LevelVeryHigh: {30, 39},
	}

	for s := 0; s <= 100; s++ {
		a := verdict(s)
		n, err := strconv.Atoi(strings.TrimSuffix(a.Confidence, "%"))
		require.NoError(t, err)
		b := bounds[a.Level]
		assert.GreaterOrEqual(t, n, b[0], "score %d", s)
		assert.LessOrEqual(t, n, b[1], "score %d", s)
	}
}

func TestPOIQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		poi  market.Candle
		want float64
	}{
		{"strong body", market.Candle{Open: 1.00, High: 1.10, Low: 0.99, Close: 1.09}, 0.8},
		{"bullish lower wick rejection", market.Candle{Open: 1.1000, High: 1.1010, Low: 1.0950, Close: 1.1008}, 0.7},
		{"bearish upper wick rejection", market.Candle{Open: 113.5, High: 114.0, Low: 113.2, Close: 113.3}, 0.7},
		{"capped at one", market.Candle{Open: 1.0, High: 1.46, Low: 0.90, Close: 1.45}, 1.0},
		{"flat candle", market.Candle{Open: 1, High: 1, Low: 1, Close: 1}, 0.5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, POIQuality(tt.poi), 1e-9)
		})
	}
}

func TestStructureAlignment(t *testing.T) {
	t.Parallel()

	rising := []market.Candle{
		{High: 5, Low: 1}, {High: 4, Low: 2}, {High: 3, Low: 3}, {High: 2, Low: 4}, {High: 1, Low: 5},
	}
	assert.Equal(t, 1.0, StructureAlignment(rising, market.Buy))
	assert.Equal(t, 1.0, StructureAlignment(rising, market.Sell))

	assert.Equal(t, 0.5, StructureAlignment(h1Series(), market.Buy))
	assert.Equal(t, 0.5, StructureAlignment(rising[:4], market.Buy))
}

func TestMomentum(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.9397, Momentum(h1Series()), 1e-3)
	assert.Equal(t, 0.5, Momentum(h1Series()[:2]))

	marubozu := []market.Candle{
		{Open: 1, High: 2, Low: 1, Close: 2},
		{Open: 2, High: 3, Low: 2, Close: 3},
		{Open: 3, High: 4, Low: 3, Close: 4},
	}
	assert.Equal(t, 1.0, Momentum(marubozu))
}

func TestConfluenceChecks(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRoundNumber(1.1))
	assert.True(t, IsRoundNumber(1.23450))
	assert.False(t, IsRoundNumber(1.23456))

	h1 := h1Series()
	assert.True(t, IsPreviousSR(115.05, h1))
	assert.False(t, IsPreviousSR(112.0, h1))
	assert.False(t, IsPreviousSR(112.0, h1[:3]))

	ten := make([]market.Candle, 10)
	for i := range ten {
		ten[i] = market.Candle{High: 110, Low: 100}
	}
	assert.True(t, IsFibonacciLevel(105.0, ten))
	assert.True(t, IsFibonacciLevel(106.3, ten))
	assert.False(t, IsFibonacciLevel(109.5, ten))
	assert.False(t, IsFibonacciLevel(105.0, ten[:9]))

	assert.InDelta(t, 1.0/3, Confluence(h1, h1[3]), 1e-9)
}

func TestRR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 3.0, RR(1.1000, 1.0990, 1.1030), 1e-9)
	assert.Equal(t, 0.0, RR(1.1, 1.1, 1.2))
}

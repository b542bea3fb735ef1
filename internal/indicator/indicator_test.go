package indicator

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 테스트용 가격 데이터 생성 (상승 추세 + 진동)
func generateTestPrices(n int) []PriceData {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]PriceData, n)
	prev := 100.0
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.1
		prices[i] = PriceData{
			Time:   baseTime.AddDate(0, 0, i),
			Open:   prev,
			High:   math.Max(prev, c) + 1 + float64(i%3),
			Low:    math.Min(prev, c) - 1 - float64(i%2),
			Close:  c,
			Volume: 1000 + float64(i%5)*100,
		}
		prev = c
	}
	return prices
}

func risingPrices(n int) []PriceData {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]PriceData, n)
	for i := range prices {
		base := 100 + float64(i)
		prices[i] = PriceData{
			Time: baseTime.AddDate(0, 0, i), Open: base, High: base + 2, Low: base, Close: base + 1, Volume: 1000,
		}
	}
	return prices
}

func flatPrices(n int, price float64) []PriceData {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]PriceData, n)
	for i := range prices {
		prices[i] = PriceData{
			Time: baseTime.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1000,
		}
	}
	return prices
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestEMASeededWithSMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9) // 첫 구간 평균
	assert.InDelta(t, 3.0, got[3], 1e-9) // 2 + 0.5*(4-2)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestRSI(t *testing.T) {
	t.Run("범위", func(t *testing.T) {
		rsi := RSI(closes(generateTestPrices(200)), 14)
		for i, v := range rsi {
			if i < 14 {
				assert.True(t, math.IsNaN(v), "index %d", i)
				continue
			}
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})

	t.Run("완전 횡보는 50", func(t *testing.T) {
		rsi := RSI(closes(flatPrices(30, 50000)), 14)
		assert.Equal(t, 50.0, rsi[14])
		assert.Equal(t, 50.0, rsi[29])
	})

	t.Run("손실이 없으면 100", func(t *testing.T) {
		rsi := RSI(closes(risingPrices(30)), 14)
		assert.Equal(t, 100.0, rsi[29])
	})

	t.Run("데이터 부족", func(t *testing.T) {
		rsi := RSI([]float64{1, 2, 3}, 14)
		require.Len(t, rsi, 3)
		for _, v := range rsi {
			assert.True(t, math.IsNaN(v))
		}
	})
}

func TestMACD(t *testing.T) {
	prices := closes(generateTestPrices(100))
	res := MACD(prices, 12, 26, 9)
	require.Len(t, res.MACD, 100)
	assert.True(t, math.IsNaN(res.MACD[24]))
	assert.False(t, math.IsNaN(res.MACD[25]))
	assert.True(t, math.IsNaN(res.Signal[32]))
	assert.False(t, math.IsNaN(res.Signal[33]))
	assert.InDelta(t, res.MACD[50]-res.Signal[50], res.Histogram[50], 1e-9)
}

func TestBollingerUsesPopulationStdDev(t *testing.T) {
	res := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 1)
	assert.InDelta(t, 3.0, res.Middle[4], 1e-9)
	assert.InDelta(t, 3+math.Sqrt2, res.Upper[4], 1e-9)
	assert.InDelta(t, 3-math.Sqrt2, res.Lower[4], 1e-9)

	flat := Bollinger([]float64{5, 5, 5, 5, 5}, 5, 2)
	assert.True(t, math.IsNaN(flat.PctB[4]), "밴드 폭이 0이면 %B는 NaN")
}

func TestATRAndADX(t *testing.T) {
	prices := generateTestPrices(200)

	atr := ATR(prices, 14)
	for _, v := range atr[13:] {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	adx := ADX(prices, 14)
	assert.True(t, math.IsNaN(adx.ADX[26]))
	for _, v := range adx.ADX[27:] {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestStochasticFlatIsNaN(t *testing.T) {
	res := Stochastic(flatPrices(30, 100), 14, 3)
	for _, v := range res.K {
		assert.True(t, math.IsNaN(v))
	}
	wr := WilliamsR(flatPrices(30, 100), 14)
	assert.True(t, math.IsNaN(wr[20]))
}

func TestSARFollowsUptrend(t *testing.T) {
	prices := risingPrices(50)
	res := SAR(prices, 0.02, 0.2)
	assert.True(t, math.IsNaN(res.SAR[0]))
	for i := 1; i < len(prices); i++ {
		assert.Equal(t, 1.0, res.Trend[i], "index %d", i)
		assert.LessOrEqual(t, res.SAR[i], prices[i].Low)
	}
}

func TestSARReversal(t *testing.T) {
	prices := risingPrices(20)
	// 급락 구간 추가
	last := prices[len(prices)-1]
	for i := 1; i <= 5; i++ {
		base := last.Close - float64(i)*10
		prices = append(prices, PriceData{
			Time: last.Time.AddDate(0, 0, i), Open: base + 5, High: base + 6, Low: base, Close: base, Volume: 1000,
		})
	}
	res := SAR(prices, 0.02, 0.2)
	assert.Equal(t, -1.0, res.Trend[len(prices)-1])
}

func TestSuperTrendDirection(t *testing.T) {
	res := SuperTrend(risingPrices(60), 10, 3)
	assert.True(t, math.IsNaN(res.Direction[8]))
	for _, v := range res.Direction[9:] {
		assert.Equal(t, 1.0, v)
	}
}

func TestVolumeIndicators(t *testing.T) {
	prices := risingPrices(30)
	obv := OBV(prices)
	assert.Equal(t, 0.0, obv[0])
	assert.Equal(t, 29000.0, obv[29])

	mfi := MFI(prices, 14)
	assert.Equal(t, 100.0, mfi[29])

	cmf := CMF(flatPrices(30, 100), 20)
	assert.Equal(t, 0.0, cmf[25])
}

func TestSpecColumns(t *testing.T) {
	tests := []struct {
		spec Spec
		want []string
	}{
		{Spec{Type: "rsi", Params: map[string]float64{"period": 14}}, []string{"rsi_14"}},
		{Spec{Type: "SMA", Params: map[string]float64{"length": 5}}, []string{"ma_5"}},
		{Spec{Type: "macd"}, []string{"macd_12_26", "macd_signal_12_26_9", "macd_hist_12_26_9"}},
		{Spec{Type: "bb"}, []string{"bb_upper_20_2", "bb_middle_20_2", "bb_lower_20_2", "bb_width_20_2", "bb_pctb_20_2"}},
		{Spec{Type: "sar"}, []string{"psar_0.02_0.2", "psar_trend_0.02_0.2"}},
		{Spec{Type: "obv"}, []string{"obv"}},
		{Spec{Type: "supertrend", Params: map[string]float64{"period": 7, "multiplier": 2.5}}, []string{"supertrend_7_2.5", "supertrend_dir_7_2.5"}},
	}
	for _, tt := range tests {
		got, err := tt.spec.Columns()
		require.NoError(t, err, tt.spec.Type)
		assert.Equal(t, tt.want, got)
	}
}

func TestSpecValidation(t *testing.T) {
	err := Spec{Type: "foo"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownIndicator))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "type", verr.Field)

	assert.Error(t, Spec{Type: "rsi", Params: map[string]float64{"period": 0}}.Validate())
	assert.Error(t, Spec{Type: "rsi", Params: map[string]float64{"period": 14.5}}.Validate())
	assert.Error(t, Spec{Type: "rsi", Params: map[string]float64{"bogus": 3}}.Validate())
	assert.Error(t, Spec{Type: "macd", Params: map[string]float64{"fast": 26, "slow": 12}}.Validate())
	assert.Error(t, Spec{Type: "psar", Params: map[string]float64{"step": 0.5, "max": 0.2}}.Validate())
	assert.NoError(t, Spec{Type: "macd", Params: map[string]float64{"shortPeriod": 5, "longPeriod": 35}}.Validate())
}

func TestWarmUpProducesValues(t *testing.T) {
	prices := generateTestPrices(300)
	for _, typ := range Types() {
		spec := Spec{Type: typ}
		warm, err := spec.WarmUp()
		require.NoError(t, err, typ)

		cols, err := Compute(spec, prices)
		require.NoError(t, err, typ)
		nanBefore := false
		for name, s := range cols {
			require.Len(t, s, len(prices), name)
			assert.False(t, math.IsNaN(s[warm]), "%s: warm-up %d 이후 값이 있어야 합니다", name, warm)
			if warm > 0 && math.IsNaN(s[warm-1]) {
				nanBefore = true
			}
		}
		// 가장 늦게 준비되는 컬럼은 정확히 warm-up 위치에서 시작합니다
		if warm > 0 {
			assert.True(t, nanBefore, "%s: warm-up %d 직전에는 NaN 컬럼이 있어야 합니다", typ, warm)
		}
	}
}

// randomWalk는 고가 >= 시가/종가 >= 저가를 지키는 양수 랜덤워크 봉을 만듭니다
func randomWalk(rng *rand.Rand, n int) []PriceData {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]PriceData, n)
	prev := 1000 + rng.Float64()*100000
	for i := range prices {
		c := prev * (1 + rng.NormFloat64()*0.03)
		if c < 1 {
			c = 1
		}
		hi := math.Max(prev, c) * (1 + rng.Float64()*0.02)
		lo := math.Min(prev, c) * (1 - rng.Float64()*0.02)
		prices[i] = PriceData{
			Time: baseTime.AddDate(0, 0, i), Open: prev, High: hi, Low: lo, Close: c,
			Volume: float64(rng.Intn(100000)),
		}
		prev = c
	}
	return prices
}

func TestOscillatorRangesOnRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 50; trial++ {
		prices := randomWalk(rng, 5+rng.Intn(300))
		period := float64(2 + rng.Intn(29))

		for _, typ := range []string{"rsi", "atr", "adx"} {
			spec := Spec{Type: typ, Params: map[string]float64{"period": period}}
			warm, err := spec.WarmUp()
			require.NoError(t, err)
			names, err := spec.Columns()
			require.NoError(t, err)
			cols, err := Compute(spec, prices)
			require.NoError(t, err)

			// 첫 컬럼(rsi_N, atr_N, adx_N)은 warm-up 전 NaN, 이후 항상 값이 있습니다
			primary := cols[names[0]]
			for i, v := range primary {
				if i < warm {
					assert.True(t, math.IsNaN(v), "%s[%d] warm-up 전", names[0], i)
					continue
				}
				require.False(t, math.IsNaN(v), "%s[%d] warm-up 이후", names[0], i)
				assert.GreaterOrEqual(t, v, 0.0, "%s[%d]", names[0], i)
				if typ != "atr" {
					assert.LessOrEqual(t, v, 100.0, "%s[%d]", names[0], i)
				}
			}
			for _, name := range names[1:] {
				for i, v := range cols[name] {
					if math.IsNaN(v) {
						continue
					}
					assert.GreaterOrEqual(t, v, 0.0, "%s[%d]", name, i)
					assert.LessOrEqual(t, v, 100.0+1e-9, "%s[%d]", name, i)
				}
			}
		}
	}
}

func TestShortInputIsAllNaN(t *testing.T) {
	prices := generateTestPrices(5)
	cols, err := Compute(Spec{Type: "rsi"}, prices)
	require.NoError(t, err)
	for _, v := range cols["rsi_14"] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestParseColumn(t *testing.T) {
	spec, ok := ParseColumn("macd_signal_12_26_9")
	require.True(t, ok)
	assert.Equal(t, "macd", spec.Type)
	assert.Equal(t, 9.0, spec.Params["signal"])

	spec, ok = ParseColumn("sma_20")
	require.True(t, ok)
	assert.Equal(t, "ma", spec.Type)

	spec, ok = ParseColumn("psar_trend_0.02_0.2")
	require.True(t, ok)
	assert.Equal(t, "psar", spec.Type)

	_, ok = ParseColumn("close")
	assert.False(t, ok)
	_, ok = ParseColumn("rsi")
	assert.False(t, ok)
}

func TestFrame(t *testing.T) {
	prices := generateTestPrices(50)
	f, err := BuildFrame(prices, []Spec{{Type: "rsi"}, {Type: "ma", Params: map[string]float64{"period": 5}}})
	require.NoError(t, err)

	assert.Equal(t, 50, f.Len())
	assert.True(t, f.Has("rsi_14"))
	assert.True(t, f.Has("sma_5"))
	assert.True(t, f.Has("close"))
	assert.False(t, f.Has("ema_9"))
	assert.Equal(t, []string{"ma_5", "rsi_14"}, f.Columns())
	assert.Equal(t, prices[10].Close, f.Value("price", 10))
	assert.True(t, math.IsNaN(f.Value("ema_9", 10)))
	assert.True(t, math.IsNaN(f.Value("rsi_14", 100)))

	assert.Error(t, f.Set("bad", Series{1, 2}))
}

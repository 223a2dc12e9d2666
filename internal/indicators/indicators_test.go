package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

const tolerance = 1e-9

func barsFromCloses(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func constantSeries(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestMovingAveragesConvergeOnConstantSeries(t *testing.T) {
	series := constantSeries(42.5, 200)
	for _, method := range []MAMethod{MASimple, MAExponent, MASmoothed, MAWeighted} {
		buf := MovingAverage(series, 14, method)
		last := buf[len(buf)-1]
		if math.Abs(last-42.5) > tolerance {
			t.Errorf("%s: expected last value 42.5, got %v", method, last)
		}
	}
}

func TestWarmupInvariant(t *testing.T) {
	series := make([]float64, 100)
	for i := range series {
		series[i] = float64(i%7) + 10
	}
	period := 10
	for _, method := range []MAMethod{MASimple, MAExponent, MASmoothed, MAWeighted} {
		buf := MovingAverage(series, period, method)
		for i := 0; i < period-1; i++ {
			if buf.Valid(i) {
				t.Fatalf("%s: index %d should be inside warmup", method, i)
			}
		}
		for i := period - 1; i < len(buf); i++ {
			if !buf.Valid(i) {
				t.Fatalf("%s: index %d should be valid", method, i)
			}
		}
	}

	rsi := RSI(series, period)
	for i := 0; i <= period-1; i++ {
		if rsi.Valid(i) {
			t.Fatalf("RSI: index %d should be inside warmup", i)
		}
	}
	if !rsi.Valid(period) {
		t.Fatal("RSI: first index past warmup should be valid")
	}
}

func TestInsufficientBarsYieldAllInvalidBuffer(t *testing.T) {
	series := []float64{1, 2, 3}
	buf := SMA(series, 10)
	if buf.FirstValid() != -1 {
		t.Fatal("expected all-invalid buffer when bars < period")
	}
	bars := barsFromCloses(series)
	if ATR(bars, 10).FirstValid() != -1 {
		t.Fatal("expected all-invalid ATR buffer when bars < period")
	}
	macd := MACD(series, 12, 26, 9)
	if macd.Signal.FirstValid() != -1 {
		t.Fatal("expected all-invalid MACD signal when bars < warmup")
	}
}

func TestEMAReferenceSeries(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ema := EMA(series, 3)
	// SMA seed 2 at index 2, then k=0.5 halves the distance every bar
	expected := []float64{2, 3, 4, 5, 6, 7, 8, 9}
	for i, want := range expected {
		got := ema[i+2]
		if math.Abs(got-want) > tolerance {
			t.Errorf("ema[%d]: expected %v, got %v", i+2, want, got)
		}
	}
}

func TestSMMAReferenceSeries(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	smma := SMMA(series, 3)
	if math.Abs(smma[2]-2) > tolerance {
		t.Errorf("seed: expected 2, got %v", smma[2])
	}
	if math.Abs(smma[3]-8.0/3.0) > tolerance {
		t.Errorf("smma[3]: expected 8/3, got %v", smma[3])
	}
	if math.Abs(smma[4]-31.0/9.0) > tolerance {
		t.Errorf("smma[4]: expected 31/9, got %v", smma[4])
	}
}

func TestATRReferenceSeries(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bar := func(i int, high, low float64) models.Bar {
		return models.Bar{Time: base.Add(time.Duration(i) * time.Hour), Open: 11, High: high, Low: low, Close: 11, Volume: 1}
	}
	bars := []models.Bar{
		bar(0, 12, 10),
		bar(1, 14, 10),
		bar(2, 14, 8),
		bar(3, 15, 7),
		bar(4, 16, 6),
	}
	atr := ATR(bars, 3)
	expected := map[int]float64{
		2: 4,           // (2+4+6)/3
		3: 16.0 / 3.0,  // (4*2+8)/3
		4: 62.0 / 9.0,  // ((16/3)*2+10)/3
	}
	for i, want := range expected {
		if math.Abs(atr[i]-want) > tolerance {
			t.Errorf("atr[%d]: expected %v, got %v", i, want, atr[i])
		}
	}
	if atr.Valid(1) {
		t.Error("atr[1] should be inside warmup")
	}
}

func TestRSIStaysBounded(t *testing.T) {
	series := make([]float64, 300)
	for i := range series {
		series[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i%13)
	}
	rsi := RSI(series, 14)
	for i := range rsi {
		if !rsi.Valid(i) {
			continue
		}
		if rsi[i] < 0 || rsi[i] > 100 {
			t.Fatalf("rsi[%d] out of range: %v", i, rsi[i])
		}
	}
}

func TestRSIAllGainsSaturates(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = float64(i + 1)
	}
	rsi := RSI(series, 14)
	if math.Abs(rsi[len(rsi)-1]-100) > tolerance {
		t.Errorf("monotone gains should saturate RSI at 100, got %v", rsi[len(rsi)-1])
	}
}

func TestBollingerBandOrdering(t *testing.T) {
	series := make([]float64, 120)
	for i := range series {
		series[i] = 50 + 5*math.Cos(float64(i)/3)
	}
	bb := Bollinger(series, 20, 2)
	for i := range series {
		if !bb.Middle.Valid(i) {
			continue
		}
		if !(bb.Upper[i] >= bb.Middle[i] && bb.Middle[i] >= bb.Lower[i]) {
			t.Fatalf("band ordering violated at %d: %v %v %v", i, bb.Upper[i], bb.Middle[i], bb.Lower[i])
		}
	}
}

func TestStochasticBoundsAndFlatRange(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%9)
	}
	res := Stochastic(barsFromCloses(closes), 5, 3, 3)
	for i := range res.K {
		if res.K.Valid(i) && (res.K[i] < 0 || res.K[i] > 100) {
			t.Fatalf("%%K out of range at %d: %v", i, res.K[i])
		}
	}

	flat := Stochastic(barsFromCloses(constantSeries(100, 30)), 5, 3, 3)
	last := flat.K[len(flat.K)-1]
	if math.Abs(last-50) > tolerance {
		t.Errorf("flat range should resolve %%K to 50, got %v", last)
	}
}

func TestMACDSignalWarmup(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		series[i] = 10 + float64(i)
	}
	res := MACD(series, 12, 26, 9)
	firstSignal := 26 + 9 - 2
	if res.Signal.FirstValid() != firstSignal {
		t.Fatalf("expected signal first valid at %d, got %d", firstSignal, res.Signal.FirstValid())
	}
	if res.MACD.FirstValid() != 25 {
		t.Fatalf("expected macd first valid at 25, got %d", res.MACD.FirstValid())
	}
	for i := range res.Histogram {
		if res.Histogram.Valid(i) && !res.Signal.Valid(i) {
			t.Fatal("histogram must not outlive signal validity")
		}
	}
}

func TestADXBoundsAndWarmup(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/10)
	}
	res := ADX(barsFromCloses(closes), 14)
	if res.ADX.FirstValid() != 27 {
		t.Fatalf("expected ADX first valid at 27, got %d", res.ADX.FirstValid())
	}
	for i := range res.ADX {
		if res.ADX.Valid(i) && (res.ADX[i] < 0 || res.ADX[i] > 100) {
			t.Fatalf("ADX out of range at %d: %v", i, res.ADX[i])
		}
	}
}

func TestIchimokuForwardShift(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i%11)
	}
	res := Ichimoku(barsFromCloses(closes), 9, 26, 52)
	if res.Tenkan.FirstValid() != 8 {
		t.Fatalf("tenkan first valid: expected 8, got %d", res.Tenkan.FirstValid())
	}
	if res.Kijun.FirstValid() != 25 {
		t.Fatalf("kijun first valid: expected 25, got %d", res.Kijun.FirstValid())
	}
	// senkou A is the tenkan/kijun midpoint shifted forward by the kijun period
	if res.SenkouA.FirstValid() != 25+26 {
		t.Fatalf("senkouA first valid: expected 51, got %d", res.SenkouA.FirstValid())
	}
	if res.SenkouB.FirstValid() != 51+26 {
		t.Fatalf("senkouB first valid: expected 77, got %d", res.SenkouB.FirstValid())
	}
}

func TestSqueezeIsBinaryPastWarmup(t *testing.T) {
	closes := make([]float64, 90)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/4)
	}
	sq := Squeeze(barsFromCloses(closes), 20, 2, 1.5)
	for i := range sq {
		if !sq.Valid(i) {
			continue
		}
		if sq[i] != 0 && sq[i] != 1 {
			t.Fatalf("squeeze must be 0 or 1, got %v at %d", sq[i], i)
		}
	}
}

func TestOBVHasNoWarmup(t *testing.T) {
	bars := barsFromCloses([]float64{10, 11, 10, 10, 12})
	obv := OBV(bars)
	if obv.FirstValid() != 0 {
		t.Fatal("OBV should be valid from the first bar")
	}
	// seed 100, +100, -100, flat, +100
	expected := []float64{100, 200, 100, 100, 200}
	for i, want := range expected {
		if math.Abs(obv[i]-want) > tolerance {
			t.Errorf("obv[%d]: expected %v, got %v", i, want, obv[i])
		}
	}
}

func TestAppliedPriceSelection(t *testing.T) {
	bar := models.Bar{Open: 10, High: 14, Low: 6, Close: 12}
	cases := map[AppliedPrice]float64{
		PriceOpen:     10,
		PriceHigh:     14,
		PriceLow:      6,
		PriceClose:    12,
		PriceMedian:   10,
		PriceTypical:  32.0 / 3.0,
		PriceWeighted: 11,
	}
	for price, want := range cases {
		got := Apply([]models.Bar{bar}, price)[0]
		if math.Abs(got-want) > tolerance {
			t.Errorf("%s: expected %v, got %v", price, want, got)
		}
	}
}

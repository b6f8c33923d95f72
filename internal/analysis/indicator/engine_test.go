package indicator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/medallion/internal/analysis/seriestest"
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func mustCompute(t *testing.T, cfg config.IndicatorConfig, s models.Series) []models.Snapshot {
	t.Helper()
	snaps, err := NewEngine(cfg).Compute(s)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(snaps) != s.Len() {
		t.Fatalf("expected %d snapshots, got %d", s.Len(), len(snaps))
	}
	return snaps
}

func wave(n int) models.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3) + 0.1*float64(i)
	}
	s := seriestest.FromCloses(500, closes...)
	for i := range s.Bars {
		s.Bars[i].High += 1 + float64(i%3)
		s.Bars[i].Low -= 1 + float64(i%2)
		s.Bars[i].Volume += float64(i * 10)
	}
	return s
}

func TestCompute_SharpDropFixture(t *testing.T) {
	closes := append(seriestest.Repeat(100, 19), 70)
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.FromCloses(1000, closes...))

	if snaps[18].MA.Valid {
		t.Error("MA must be undefined before the window is full")
	}
	last := snaps[19]
	ma, ok := last.MA.Get()
	if !ok {
		t.Fatal("MA must be defined at bar 19")
	}
	assertClose(t, "MA20", ma, 98.5, 1e-9)
	std, _ := last.StdDev.Get()
	assertClose(t, "StdDev20", std, math.Sqrt(45), 1e-9)
	z, ok := last.ZScore.Get()
	if !ok || z >= -2.1 {
		t.Errorf("expected strongly negative z-score, got %v", last.ZScore)
	}
	assertClose(t, "ZScore", z, -28.5/math.Sqrt(45), 1e-9)
}

func TestCompute_TrendAverageDegrades(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = float64(10 + i)
	}
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.FromCloses(1, closes...))
	for i, s := range snaps {
		v, ok := s.Trend.Get()
		if !ok {
			t.Fatalf("trend undefined at %d", i)
		}
		// среднее арифметической прогрессии 10..10+i
		assertClose(t, "trend", v, 10+float64(i)/2, 1e-9)
	}

	cfg := config.DefaultIndicators()
	cfg.TrendWindow = 5
	snaps = mustCompute(t, cfg, seriestest.FromCloses(1, closes...))
	assertClose(t, "trend window 5", snaps[49].Trend.Float64, 57, 1e-9)
}

func TestCompute_ZeroStdIsUndefined(t *testing.T) {
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.FromCloses(1, seriestest.Repeat(0.1, 40)...))
	for i, s := range snaps {
		if s.ZScore.Valid {
			t.Fatalf("z-score must be undefined for flat series at %d: %v", i, s.ZScore)
		}
	}
	if !snaps[39].StdDev.Valid || snaps[39].StdDev.Float64 != 0 {
		t.Errorf("std must be defined and zero, got %v", snaps[39].StdDev)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	s := wave(300)
	e := NewEngine(config.DefaultIndicators())
	a, err := e.Compute(s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Compute(s)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two computations over the same input differ")
	}
}

func TestCompute_MonotonicRiseIsPositive(t *testing.T) {
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.Uptrend(120, 100, 1))
	for i, s := range snaps {
		if z, ok := s.ZScore.Get(); ok && z <= 0 {
			t.Fatalf("z-score must be positive on a rising series, bar %d: %.4f", i, z)
		}
	}
}

func TestCompute_RejectsMalformedSeries(t *testing.T) {
	_, err := NewEngine(config.DefaultIndicators()).Compute(models.Series{})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	s := seriestest.FromCloses(1, 1, 2, 3)
	s.Bars[2].Time = s.Bars[0].Time
	if _, err := NewEngine(config.DefaultIndicators()).Compute(s); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unsorted series, got %v", err)
	}
}

func TestCompute_ATR(t *testing.T) {
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.Downtrend(40, 300, 1))
	if snaps[12].ATR.Valid {
		t.Error("ATR must be undefined before 14 bars")
	}
	// первая свеча: high-low = 1, остальные 1.5 из-за гэпа к прошлому закрытию
	assertClose(t, "ATR[13]", snaps[13].ATR.Float64, (1+13*1.5)/14, 1e-9)
	assertClose(t, "ATR[14]", snaps[14].ATR.Float64, 1.5, 1e-9)
}

func TestCompute_ADXClipOnDowntrend(t *testing.T) {
	snaps := mustCompute(t, config.DefaultIndicators(), seriestest.Downtrend(60, 300, 1))
	if snaps[26].ADX.Valid {
		t.Error("ADX must be undefined before 2*14 bars")
	}
	for i := 27; i < 60; i++ {
		assertClose(t, "ADX", snaps[i].ADX.Float64, 100, 1e-9)
		assertClose(t, "+DI", snaps[i].PlusDI.Float64, 0, 1e-9)
		assertClose(t, "-DI", snaps[i].MinusDI.Float64, 100/1.5, 1e-9)
	}
}

func TestDirectional_ExclusiveDropsSmallerMove(t *testing.T) {
	t0 := seriestest.Start
	bars := []models.Bar{
		{Time: t0, Open: 9.5, High: 10, Low: 9, Close: 9.5},
		{Time: t0.Add(time.Hour), Open: 10, High: 12, Low: 8, Close: 10},
	}
	atr := averageTrueRange(bars, 1)

	cfg := config.IndicatorConfig{ADXWindow: 1, DMMode: config.DMClip}
	clip := directional(bars, atr, cfg)
	assertClose(t, "clip +DI", clip.plusDI[1].Float64, 50, 1e-9)
	assertClose(t, "clip -DI", clip.minusDI[1].Float64, 25, 1e-9)

	cfg.DMMode = config.DMExclusive
	excl := directional(bars, atr, cfg)
	assertClose(t, "exclusive +DI", excl.plusDI[1].Float64, 50, 1e-9)
	assertClose(t, "exclusive -DI", excl.minusDI[1].Float64, 0, 1e-9)
	assertClose(t, "exclusive ADX", excl.adx[1].Float64, 100, 1e-9)
}

func TestDirectional_ZeroSumIsUndefined(t *testing.T) {
	// одинаковые свечи: DM = 0, сумма DI = 0
	s := seriestest.FromCloses(1, 10, 10, 10, 10)
	for i := range s.Bars {
		s.Bars[i].High = 11
		s.Bars[i].Low = 9
	}
	atr := averageTrueRange(s.Bars, 2)
	dm := directional(s.Bars, atr, config.IndicatorConfig{ADXWindow: 2, DMMode: config.DMClip})
	for i, v := range dm.adx {
		if v.Valid {
			t.Errorf("ADX must be undefined at %d when +DI + -DI == 0", i)
		}
	}
	if !dm.plusDI[3].Valid || dm.plusDI[3].Float64 != 0 {
		t.Errorf("+DI must be defined and zero, got %v", dm.plusDI[3])
	}
}

func TestCompute_ADXWilderMode(t *testing.T) {
	cfg := config.DefaultIndicators()
	cfg.DMMode = config.DMWilder
	snaps := mustCompute(t, cfg, seriestest.Downtrend(60, 300, 1))
	if snaps[26].ADX.Valid || snaps[13].PlusDI.Valid {
		t.Error("wilder ADX/DI must be undefined during warm-up")
	}
	adx, ok := snaps[59].ADX.Get()
	if !ok || adx < 99 {
		t.Errorf("expected ADX near 100 on a clean downtrend, got %v", snaps[59].ADX)
	}
	if snaps[59].PlusDI.Float64 > 1e-9 {
		t.Errorf("expected +DI == 0, got %v", snaps[59].PlusDI)
	}
}

func TestMoneyFlowIndex(t *testing.T) {
	s := seriestest.FromCloses(1, 10, 11, 10.5)
	mfi := moneyFlowIndex(s.Bars, 2)
	if mfi[1].Valid {
		t.Error("MFI must be undefined before the window is full")
	}
	assertClose(t, "MFI", mfi[2].Float64, 100-100/(1+11/10.5), 1e-9)

	rising := moneyFlowIndex(seriestest.FromCloses(1, 1, 2, 3, 4).Bars, 3)
	assertClose(t, "saturated MFI", rising[3].Float64, 100, 0)

	falling := moneyFlowIndex(seriestest.FromCloses(1, 4, 3, 2, 1).Bars, 3)
	assertClose(t, "no buying MFI", falling[3].Float64, 0, 0)
}

func TestRelativeStrength_MatchesTALib(t *testing.T) {
	s := wave(80)
	closes := s.Closes()
	got := relativeStrength(closes, 14)
	want := talib.Rsi(closes, 14)
	if got[13].Valid {
		t.Error("RSI must be undefined before 14 changes")
	}
	for i := 14; i < len(closes); i++ {
		assertClose(t, "RSI", got[i].Float64, want[i], 1e-6)
	}
}

func TestRelativeStrength_Flat(t *testing.T) {
	got := relativeStrength(seriestest.Repeat(5, 20), 14)
	assertClose(t, "flat RSI", got[19].Float64, 50, 0)
	up := relativeStrength([]float64{1, 2, 3, 4, 5}, 3)
	assertClose(t, "rising RSI", up[4].Float64, 100, 0)
}

func TestEngine_Warmup(t *testing.T) {
	if w := NewEngine(config.DefaultIndicators()).Warmup(); w != 200 {
		t.Errorf("expected warmup 200, got %d", w)
	}
}

func TestCompute_ShortSeriesStaysUndefined(t *testing.T) {
	snaps := mustCompute(t, config.DefaultIndicators(), wave(5))
	for i, s := range snaps {
		if s.MA.Valid || s.ATR.Valid || s.RSI.Valid || s.MFI.Valid || s.ADX.Valid {
			t.Errorf("bar %d: windowed indicators must be undefined: %+v", i, s)
		}
		if !s.Trend.Valid {
			t.Errorf("bar %d: trend must degrade to the available history", i)
		}
	}
}

func TestMovingAverage_MatchesTALibAfterWarmup(t *testing.T) {
	closes := wave(60).Closes()
	got := movingAverage(closes, 20)
	want := talib.Sma(closes, 20)
	for i := range closes {
		if i < 19 {
			if got[i].Valid {
				t.Errorf("MA must be undefined at %d, got %v", i, got[i])
			}
			continue
		}
		assertClose(t, "MA", got[i].Float64, want[i], 1e-9)
	}
}

func TestMoneyFlowIndex_SaturatesAfterLossesLeaveWindow(t *testing.T) {
	bars := seriestest.FromCloses(1, 10, 9.9, 9.7, 10, 10.1, 10.2, 10.3, 10.4).Bars
	mfi := moneyFlowIndex(bars, 3)
	for i := 5; i < len(bars); i++ {
		assertClose(t, "saturated MFI", mfi[i].Float64, 100, 0)
	}
	if v := mfi[4].Float64; v <= 0 || v >= 100 {
		t.Errorf("window with a loss must stay inside (0, 100), got %v", v)
	}
}

func TestRelativeStrength_FirstMoveAfterFlat(t *testing.T) {
	closes := append(seriestest.Repeat(5, 20), 6)
	got := relativeStrength(closes, 14)
	assertClose(t, "flat RSI", got[19].Float64, 50, 0)
	assertClose(t, "first gain RSI", got[20].Float64, 100, 0)
	if short := relativeStrength([]float64{1, 2, 3}, 14); short[2].Valid {
		t.Error("RSI must be undefined without enough changes")
	}
}

package levels

import (
	"math"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Detector ищет уровни поддержки и сопротивления по хвосту ряда
type Detector struct {
	config config.LevelsConfig
}

// NewDetector создает детектор уровней
func NewDetector(cfg config.LevelsConfig) *Detector {
	return &Detector{config: cfg}
}

func tail(bars []models.Bar, n int) ([]models.Bar, int) {
	if n <= 0 {
		return nil, len(bars)
	}
	if n >= len(bars) {
		return bars, 0
	}
	return bars[len(bars)-n:], len(bars) - n
}

// Rolling минимум low и максимум high за последние rolling_window свечей.
// Если свечей меньше окна, используется вся доступная история.
func (d *Detector) Rolling(bars []models.Bar) (support, resistance float64, ok bool) {
	window, _ := tail(bars, d.config.RollingWindow)
	if len(window) == 0 {
		return 0, 0, false
	}
	support = math.Inf(1)
	resistance = math.Inf(-1)
	for _, b := range window {
		support = math.Min(support, b.Low)
		resistance = math.Max(resistance, b.High)
	}
	return support, resistance, true
}

// Pivots фрактальные экстремумы в последних pivot_window свечах.
// Свеча i - минимум, если low[i] < low[i±1] и low[i±1] < low[i±2];
// максимум симметрично по high. Индексы отсчитываются от начала ряда.
func (d *Detector) Pivots(bars []models.Bar) []models.Pivot {
	window, offset := tail(bars, d.config.PivotWindow)
	var out []models.Pivot
	for i := 2; i+2 < len(window); i++ {
		if isPivotLow(window, i) {
			out = append(out, models.Pivot{
				Index: offset + i,
				Time:  window[i].Time,
				Price: window[i].Low,
				Kind:  models.PivotSupport,
			})
		}
		if isPivotHigh(window, i) {
			out = append(out, models.Pivot{
				Index: offset + i,
				Time:  window[i].Time,
				Price: window[i].High,
				Kind:  models.PivotResistance,
			})
		}
	}
	return out
}

func isPivotLow(b []models.Bar, i int) bool {
	return b[i].Low < b[i-1].Low && b[i-1].Low < b[i-2].Low &&
		b[i].Low < b[i+1].Low && b[i+1].Low < b[i+2].Low
}

func isPivotHigh(b []models.Bar, i int) bool {
	return b[i].High > b[i-1].High && b[i-1].High > b[i-2].High &&
		b[i].High > b[i+1].High && b[i+1].High > b[i+2].High
}

// Band уровни для торгового плана. В режиме fractal берется ближайший
// фрактальный минимум не выше entry и ближайший максимум не ниже entry;
// недостающая сторона берется из скользящего экстремума.
func (d *Detector) Band(bars []models.Bar, entry float64) (support, resistance float64, ok bool) {
	support, resistance, ok = d.Rolling(bars)
	if !ok || d.config.Mode != config.LevelsFractal {
		return support, resistance, ok
	}

	bestLow, bestHigh := math.Inf(-1), math.Inf(1)
	for _, p := range d.Pivots(bars) {
		switch {
		case p.Kind == models.PivotSupport && p.Price <= entry && p.Price > bestLow:
			bestLow = p.Price
		case p.Kind == models.PivotResistance && p.Price >= entry && p.Price < bestHigh:
			bestHigh = p.Price
		}
	}
	if !math.IsInf(bestLow, 0) {
		support = bestLow
	}
	if !math.IsInf(bestHigh, 0) {
		resistance = bestHigh
	}
	return support, resistance, true
}

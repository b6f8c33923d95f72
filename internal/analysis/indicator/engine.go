// Package indicator рассчитывает скользящие индикаторы по ряду свечей.
//
// Все функции пакета чистые: результат зависит только от входного ряда
// и конфигурации. Значения, для которых не хватает истории, помечаются
// как неопределенные (models.Null), а не опускаются, чтобы индекс снимка
// всегда совпадал с индексом свечи.
package indicator

import (
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Engine вычисляет снимки индикаторов
type Engine struct {
	config config.IndicatorConfig
}

// NewEngine создает движок индикаторов
func NewEngine(cfg config.IndicatorConfig) *Engine {
	if cfg.DMMode == "" {
		cfg.DMMode = config.DMClip
	}
	return &Engine{config: cfg}
}

// Config возвращает настройки движка
func (e *Engine) Config() config.IndicatorConfig {
	return e.config
}

// Warmup возвращает наибольшее окно, после которого определены все индикаторы
func (e *Engine) Warmup() int {
	c := e.config
	n := c.MAWindow
	for _, w := range []int{c.ATRWindow, c.ADXWindow, c.MFIWindow, c.RSIWindow, c.TrendWindow} {
		if w > n {
			n = w
		}
	}
	return n
}

// Compute рассчитывает по одному снимку на каждую свечу ряда.
// Некорректный ряд возвращает *models.ValidationError.
func (e *Engine) Compute(series models.Series) ([]models.Snapshot, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	bars := series.Bars
	closes := series.Closes()

	ma := movingAverage(closes, e.config.MAWindow)
	std := stdDev(closes, e.config.MAWindow)
	z := zScore(closes, ma, std)

	atr := averageTrueRange(bars, e.config.ATRWindow)
	dm := directional(bars, atr, e.config)
	mfi := moneyFlowIndex(bars, e.config.MFIWindow)
	rsi := relativeStrength(closes, e.config.RSIWindow)
	trend := trendAverage(closes, e.config.TrendWindow)

	snapshots := make([]models.Snapshot, len(bars))
	for i, b := range bars {
		snapshots[i] = models.Snapshot{
			Time:    b.Time,
			Close:   b.Close,
			MA:      ma[i],
			StdDev:  std[i],
			ZScore:  z[i],
			ATR:     atr[i],
			PlusDI:  dm.plusDI[i],
			MinusDI: dm.minusDI[i],
			ADX:     dm.adx[i],
			MFI:     mfi[i],
			RSI:     rsi[i],
			Trend:   trend[i],
		}
	}
	return snapshots, nil
}

// zScore отклонение цены от среднего в стандартных отклонениях.
// При нулевом отклонении значение не определено.
func zScore(closes []float64, ma, std []models.NullFloat) []models.NullFloat {
	out := make([]models.NullFloat, len(closes))
	for i, c := range closes {
		m, okM := ma[i].Get()
		s, okS := std[i].Get()
		if !okM || !okS || s == 0 {
			continue
		}
		out[i] = models.Float((c - m) / s)
	}
	return out
}

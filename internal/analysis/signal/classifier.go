package signal

import (
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Classifier переводит снимок индикаторов в дискретный сигнал
type Classifier struct {
	config config.SignalConfig
}

// NewClassifier создает классификатор
func NewClassifier(cfg config.SignalConfig) *Classifier {
	return &Classifier{config: cfg}
}

// Classify применяет правила по порядку, первое совпадение побеждает:
//  1. LongStrong: Z < -порог, ADX > минимума, MFI < нижней границы
//  2. ShortStrong: Z > порог, ADX > минимума, MFI > верхней границы
//  3. Long: Z < -порог
//  4. Short: Z > порог
//  5. Neutral
//
// Правила 1-2 работают только при включенном confluence, правила 3-4
// отключаются в строгом режиме. Неопределенный индикатор исключает
// правило, которому он нужен.
func (c *Classifier) Classify(s models.Snapshot) models.Signal {
	z, ok := s.ZScore.Get()
	if !ok {
		return models.Neutral
	}
	cfg := c.config

	below := z < -cfg.ZThreshold && c.trendAllows(s, true)
	above := z > cfg.ZThreshold && c.trendAllows(s, false)
	if !below && !above {
		return models.Neutral
	}

	if cfg.Confluence {
		adx, okADX := s.ADX.Get()
		mfi, okMFI := s.MFI.Get()
		trending := okADX && adx > cfg.ADXMin
		if below && trending && okMFI && mfi < cfg.MFILow {
			return models.LongStrong
		}
		if above && trending && okMFI && mfi > cfg.MFIHigh {
			return models.ShortStrong
		}
		if cfg.Strict {
			return models.Neutral
		}
	}

	if below {
		return models.Long
	}
	return models.Short
}

// trendAllows фильтр по долгосрочному среднему: покупки только выше него,
// продажи только ниже
func (c *Classifier) trendAllows(s models.Snapshot, long bool) bool {
	if !c.config.TrendFilter {
		return true
	}
	trend, ok := s.Trend.Get()
	if !ok {
		return false
	}
	if long {
		return s.Close > trend
	}
	return s.Close < trend
}

// ClassifyAll возвращает сигнал для каждого снимка
func (c *Classifier) ClassifyAll(snapshots []models.Snapshot) []models.Signal {
	out := make([]models.Signal, len(snapshots))
	for i, s := range snapshots {
		out[i] = c.Classify(s)
	}
	return out
}

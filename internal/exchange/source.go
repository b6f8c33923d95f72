package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Source источник исторических свечей
type Source interface {
	Name() string
	GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error)
}

// Поддерживаемые таймфреймы
var intervals = map[string]time.Duration{
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ValidInterval проверяет, что таймфрейм поддерживается источниками
func ValidInterval(interval string) error {
	if _, ok := intervals[interval]; !ok {
		return fmt.Errorf("неподдерживаемый интервал %q (допустимы 15m, 30m, 1h, 4h, 1d)", interval)
	}
	return nil
}

// IntervalDuration длительность свечи; для неизвестного интервала час
func IntervalDuration(interval string) time.Duration {
	if d, ok := intervals[interval]; ok {
		return d
	}
	return time.Hour
}

// NewSource создает сетевой источник по настройкам
func NewSource(cfg config.ExchangeConfig) (Source, error) {
	switch cfg.Source {
	case "binance":
		s, err := NewBinanceSource(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "yahoo":
		s, err := NewYahooSource(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("источник %q не является сетевым", cfg.Source)
	}
}

// trim оставляет последние limit свечей
func trim(bars []models.Bar, limit int) []models.Bar {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}

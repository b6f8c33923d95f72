package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

const (
	// Максимум свечей за один запрос klines
	binanceMaxKlines  = 1000
	binanceTestnetURL = "https://testnet.binance.vision"
)

// BinanceSource свечи спотового рынка Binance
type BinanceSource struct {
	spot *binance.Client
}

// NewBinanceSource создает источник Binance.
// Ключи необязательны: klines доступны публично.
func NewBinanceSource(cfg config.ExchangeConfig) (*BinanceSource, error) {
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	if cfg.Testnet {
		spotClient.BaseURL = binanceTestnetURL
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора адреса прокси: %w", err)
		}
		spotClient.HTTPClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	return &BinanceSource{spot: spotClient}, nil
}

// Name имя источника
func (s *BinanceSource) Name() string { return "binance" }

// GetBars получает последние limit свечей, при необходимости несколькими запросами
func (s *BinanceSource) GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error) {
	if err := ValidInterval(interval); err != nil {
		return models.Series{}, err
	}
	symbol = NormalizeSymbol("binance", symbol)

	var bars []models.Bar
	var endTime int64
	for len(bars) < limit {
		batch := limit - len(bars)
		if batch > binanceMaxKlines {
			batch = binanceMaxKlines
		}

		svc := s.spot.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(batch)
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		klines, err := svc.Do(ctx)
		if err != nil {
			return models.Series{}, fmt.Errorf("ошибка получения свечей %s: %w", symbol, err)
		}
		if len(klines) == 0 {
			break
		}

		page, err := klinesToBars(klines)
		if err != nil {
			return models.Series{}, fmt.Errorf("ошибка разбора свечей %s: %w", symbol, err)
		}
		bars = append(page, bars...)
		endTime = klines[0].OpenTime - 1

		if len(klines) < batch {
			break
		}
	}

	logger.Debug("BINANCE: получены свечи",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(bars)))

	return models.Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

// klinesToBars переводит строковые цены Binance в свечи
func klinesToBars(klines []*binance.Kline) ([]models.Bar, error) {
	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		values := make([]float64, 5)
		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("свеча %d: некорректное число %q: %w", k.OpenTime, raw, err)
			}
			values[i] = d.InexactFloat64()
		}
		bars = append(bars, models.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}
	return bars, nil
}

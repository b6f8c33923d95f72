package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource свечи акций и индексов через публичный chart API Yahoo Finance
type YahooSource struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooSource создает источник Yahoo, proxyURL необязателен
func NewYahooSource(proxyURL string) (*YahooSource, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора адреса прокси: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &YahooSource{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: yahooBaseURL,
	}, nil
}

// Name имя источника
func (s *YahooSource) Name() string { return "yahoo" }

// yahooChart ответ chart API
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooQuery интервал и глубина запроса. 4h в API нет, он собирается из 1h.
func yahooQuery(interval string) (yahooInterval, rng string) {
	switch interval {
	case "1d":
		return "1d", "2y"
	case "4h":
		return "1h", "2y"
	default:
		return interval, "1mo"
	}
}

// GetBars получает свечи, последние limit штук
func (s *YahooSource) GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error) {
	if err := ValidInterval(interval); err != nil {
		return models.Series{}, err
	}
	symbol = NormalizeSymbol("yahoo", symbol)

	yInterval, rng := yahooQuery(interval)
	bars, err := s.fetchChart(ctx, symbol, yInterval, rng)
	if err != nil {
		return models.Series{}, err
	}
	if interval == "4h" {
		bars = resample(bars, 4*time.Hour)
	}
	bars = trim(bars, limit)

	logger.Debug("YAHOO: получены свечи",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("count", len(bars)))

	return models.Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (s *YahooSource) fetchChart(ctx context.Context, symbol, interval, rng string) ([]models.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		s.BaseURL, url.PathEscape(symbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к Yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа Yahoo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: статус %d для %s", resp.StatusCode, symbol)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа Yahoo: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: нет данных для %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		// пустые свечи (праздники, паузы торгов)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		volume := 0.0
		if v := at(quote.Volume, i); v != nil {
			volume = *v
		}
		bars = append(bars, models.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return dedup(bars), nil
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

// dedup оставляет последнюю свечу для повторяющейся метки времени.
// Yahoo отдает текущую незакрытую свечу отдельной строкой.
func dedup(bars []models.Bar) []models.Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// resample собирает свечи большего таймфрейма: open первой, close последней,
// экстремумы и сумма объема по корзине
func resample(bars []models.Bar, period time.Duration) []models.Bar {
	var out []models.Bar
	for _, b := range bars {
		bucket := b.Time.Truncate(period)
		n := len(out)
		if n == 0 || !out[n-1].Time.Equal(bucket) {
			b.Time = bucket
			out = append(out, b)
			continue
		}
		cur := &out[n-1]
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return out
}

// Package seriestest строит синтетические ряды свечей для тестов анализа.
package seriestest

import (
	"time"

	"github.com/skalibog/medallion/pkg/models"
)

// Start время первой свечи синтетических рядов
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FromCloses ряд часовых свечей с open=high=low=close и постоянным объемом
func FromCloses(volume float64, closes ...float64) models.Series {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Time:   Start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return models.Series{Symbol: "TEST", Interval: "1h", Bars: bars}
}

// Repeat n одинаковых значений
func Repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Downtrend ряд с ценой закрытия start - i*step, high = close + step/2,
// low = close - step/2 и открытием на high.
func Downtrend(n int, start, step float64) models.Series {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := start - float64(i)*step
		bars[i] = models.Bar{
			Time:   Start.Add(time.Duration(i) * time.Hour),
			Open:   c + step/2,
			High:   c + step/2,
			Low:    c - step/2,
			Close:  c,
			Volume: 1000,
		}
	}
	return models.Series{Symbol: "TEST", Interval: "1h", Bars: bars}
}

// Uptrend зеркальный Downtrend рост
func Uptrend(n int, start, step float64) models.Series {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = models.Bar{
			Time:   Start.Add(time.Duration(i) * time.Hour),
			Open:   c - step/2,
			High:   c + step/2,
			Low:    c - step/2,
			Close:  c,
			Volume: 1000,
		}
	}
	return models.Series{Symbol: "TEST", Interval: "1h", Bars: bars}
}

// InjectDip опускает закрытие свечи idx на drop. Открытие свечи
// остается на предыдущем закрытии, low опускается под новое закрытие.
func InjectDip(s models.Series, idx int, drop float64) models.Series {
	bars := append([]models.Bar(nil), s.Bars...)
	b := bars[idx]
	prevClose := bars[idx-1].Close
	b.Close -= drop
	b.Open = prevClose
	b.High = prevClose
	b.Low = b.Close - 0.5
	bars[idx] = b
	return models.Series{Symbol: s.Symbol, Interval: s.Interval, Bars: bars}
}

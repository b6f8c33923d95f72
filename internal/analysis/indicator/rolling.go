package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/medallion/pkg/models"
)

// zeroStdTolerance относительный порог, ниже которого отклонение считается нулевым.
// Постоянный ряд из непредставимых точно чисел (например 0.1) дает
// отклонение порядка 1e-17, которое нельзя делить.
const zeroStdTolerance = 1e-12

// columns раскладывает свечи по столбцам для TA-Lib
func columns(bars []models.Bar) (highs, lows, closes, volumes []float64) {
	n := len(bars)
	highs = make([]float64, n)
	lows = make([]float64, n)
	closes = make([]float64, n)
	volumes = make([]float64, n)
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
	}
	return highs, lows, closes, volumes
}

// defined переносит результат TA-Lib в NullFloat.
// TA-Lib заполняет период разгона нулями, поэтому индексы до from
// остаются неопределенными.
func defined(xs []float64, from int) []models.NullFloat {
	out := make([]models.NullFloat, len(xs))
	for i := from; i < len(xs); i++ {
		out[i] = models.Float(xs[i])
	}
	return out
}

// movingAverage простое скользящее среднее, не определено при i < w-1
func movingAverage(xs []float64, w int) []models.NullFloat {
	if w < 1 || len(xs) < w {
		return make([]models.NullFloat, len(xs))
	}
	return defined(talib.Sma(xs, w), w-1)
}

// stdDev выборочное стандартное отклонение (делитель n-1).
// talib.StdDev считает генеральное отклонение (делитель n), поэтому здесь цикл.
func stdDev(xs []float64, w int) []models.NullFloat {
	out := make([]models.NullFloat, len(xs))
	if w < 2 {
		return out
	}
	for i := w - 1; i < len(xs); i++ {
		window := xs[i-w+1 : i+1]
		m := 0.0
		for _, x := range window {
			m += x
		}
		m /= float64(w)
		ss := 0.0
		for _, x := range window {
			ss += (x - m) * (x - m)
		}
		s := math.Sqrt(ss / float64(w-1))
		if s <= zeroStdTolerance*math.Abs(m) {
			s = 0
		}
		out[i] = models.Float(s)
	}
	return out
}

// rollingMean среднее по окну из определенных значений.
// Если в окне есть неопределенное значение, результат не определен.
// TA-Lib не различает пропуски, поэтому DM и DX усредняются здесь.
func rollingMean(xs []models.NullFloat, w int) []models.NullFloat {
	out := make([]models.NullFloat, len(xs))
	for i := w - 1; i < len(xs); i++ {
		sum := 0.0
		ok := true
		for _, x := range xs[i-w+1 : i+1] {
			if !x.Valid {
				ok = false
				break
			}
			sum += x.Float64
		}
		if ok {
			out[i] = models.Float(sum / float64(w))
		}
	}
	return out
}

// trueRange истинный диапазон; для первой свечи high-low
func trueRange(bars []models.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	highs, lows, closes, _ := columns(bars)
	tr := talib.TRange(highs, lows, closes)
	tr[0] = bars[0].High - bars[0].Low
	return tr
}

// averageTrueRange простое среднее истинного диапазона за w свечей
func averageTrueRange(bars []models.Bar, w int) []models.NullFloat {
	return movingAverage(trueRange(bars), w)
}

// trendAverage среднее закрытий по min(window, i+1) свечам.
// В отличие от movingAverage определено на каждой свече.
func trendAverage(closes []float64, window int) []models.NullFloat {
	out := movingAverage(closes, window)
	sum := 0.0
	for i := 0; i < len(closes) && i < window-1; i++ {
		sum += closes[i]
		out[i] = models.Float(sum / float64(i+1))
	}
	return out
}

package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/medallion/pkg/models"
)

// flowTolerance доля суммарного потока, ниже которой отрицательный поток
// считается нулевым. Скользящая сумма TA-Lib вычитает ушедшие из окна
// значения и может оставить остаток порядка 1e-17 вместо нуля.
const flowTolerance = 1e-12

// moneyFlowIndex индекс денежного потока.
// Поток свечи считается положительным, если типичная цена выросла
// относительно предыдущей свечи, и отрицательным, если упала.
// При нулевом отрицательном потоке значение насыщается до 100,
// тогда как talib.Mfi в этом случае дает 0, поэтому суммы окон
// берутся из talib.Sum, а отношение считается здесь.
func moneyFlowIndex(bars []models.Bar, w int) []models.NullFloat {
	n := len(bars)
	out := make([]models.NullFloat, n)
	if w < 1 || n <= w {
		return out
	}

	highs, lows, closes, volumes := columns(bars)
	tp := talib.TypPrice(highs, lows, closes)

	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		mf := tp[i] * volumes[i]
		switch {
		case tp[i] > tp[i-1]:
			pos[i] = mf
		case tp[i] < tp[i-1]:
			neg[i] = mf
		}
	}

	posSum := talib.Sum(pos, w)
	negSum := talib.Sum(neg, w)
	for i := w; i < n; i++ {
		p := math.Max(posSum[i], 0)
		m := negSum[i]
		if m <= flowTolerance*(p+math.Abs(m)) {
			out[i] = models.Float(100)
			continue
		}
		if p <= flowTolerance*m {
			out[i] = models.Float(0)
			continue
		}
		out[i] = models.Float(100 - 100/(1+p/m))
	}
	return out
}

// relativeStrength RSI Уайлдера из talib.Rsi.
// Пока цена ни разу не менялась, обе средние равны нулю и RSI равен 50;
// TA-Lib в этом случае возвращает 0.
func relativeStrength(closes []float64, w int) []models.NullFloat {
	n := len(closes)
	if w < 2 || n <= w {
		return make([]models.NullFloat, n)
	}

	out := defined(talib.Rsi(closes, w), w)
	moved := false
	for i := 1; i < n; i++ {
		moved = moved || closes[i] != closes[i-1]
		if !moved && i >= w {
			out[i] = models.Float(50)
		}
	}
	return out
}

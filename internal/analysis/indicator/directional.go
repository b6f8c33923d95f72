package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

type directionalIndex struct {
	plusDI  []models.NullFloat
	minusDI []models.NullFloat
	adx     []models.NullFloat
}

// directional рассчитывает +DI, -DI и ADX в выбранном режиме.
//
//   - clip: +DM и -DM считаются независимо простым отсечением отрицательных
//     значений. Это упрощение, а не классический ADX.
//   - exclusive: правило исключительности Уайлдера, учитывается только
//     большее из движений. Сглаживание то же, простое среднее.
//   - wilder: классический ADX со сглаживанием Уайлдера из TA-Lib.
func directional(bars []models.Bar, atr []models.NullFloat, cfg config.IndicatorConfig) directionalIndex {
	if cfg.DMMode == config.DMWilder {
		return wilderDirectional(bars, cfg.ADXWindow)
	}

	n := len(bars)
	plusDM := make([]models.NullFloat, n)
	minusDM := make([]models.NullFloat, n)
	exclusive := cfg.DMMode == config.DMExclusive

	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low

		var p, m float64
		if exclusive {
			if up > down && up > 0 {
				p = up
			}
			if down > up && down > 0 {
				m = down
			}
		} else {
			p = math.Max(up, 0)
			m = math.Max(down, 0)
		}
		plusDM[i] = models.Float(p)
		minusDM[i] = models.Float(m)
	}

	w := cfg.ADXWindow
	plusAvg := rollingMean(plusDM, w)
	minusAvg := rollingMean(minusDM, w)

	out := directionalIndex{
		plusDI:  make([]models.NullFloat, n),
		minusDI: make([]models.NullFloat, n),
	}
	dx := make([]models.NullFloat, n)
	for i := 0; i < n; i++ {
		a, okA := atr[i].Get()
		p, okP := plusAvg[i].Get()
		m, okM := minusAvg[i].Get()
		if !okA || !okP || !okM || a == 0 {
			continue
		}
		pdi := 100 * p / a
		mdi := 100 * m / a
		out.plusDI[i] = models.Float(pdi)
		out.minusDI[i] = models.Float(mdi)
		if sum := pdi + mdi; sum != 0 {
			dx[i] = models.Float(math.Abs(pdi-mdi) / sum)
		}
	}

	adx := rollingMean(dx, w)
	for i := range adx {
		if adx[i].Valid {
			adx[i] = models.Float(100 * adx[i].Float64)
		}
	}
	out.adx = adx
	return out
}

// wilderDirectional классический вариант через TA-Lib.
// TA-Lib заполняет период разгона нулями, поэтому определенность
// задается по индексу: DI с period, ADX с 2*period-1.
func wilderDirectional(bars []models.Bar, period int) directionalIndex {
	n := len(bars)
	out := directionalIndex{
		plusDI:  make([]models.NullFloat, n),
		minusDI: make([]models.NullFloat, n),
		adx:     make([]models.NullFloat, n),
	}
	if n <= period {
		return out
	}

	highs, lows, closes, _ := columns(bars)
	plus := talib.PlusDI(highs, lows, closes, period)
	minus := talib.MinusDI(highs, lows, closes, period)
	for i := period; i < n; i++ {
		out.plusDI[i] = models.Float(plus[i])
		out.minusDI[i] = models.Float(minus[i])
	}

	lookback := 2*period - 1
	if n <= lookback {
		return out
	}
	adx := talib.Adx(highs, lows, closes, period)
	for i := lookback; i < n; i++ {
		out.adx[i] = models.Float(adx[i])
	}
	return out
}

package plan

import (
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Planner рассчитывает цели и стопы по сигналу и волатильности
type Planner struct {
	config config.PlanConfig
}

// NewPlanner создает планировщик
func NewPlanner(cfg config.PlanConfig) *Planner {
	return &Planner{config: cfg}
}

// Plan строит план от цены входа.
//
// Для длинного сигнала TP = entry + ATR*tp, SL = entry - ATR*sl, для
// короткого знаки зеркальны. Нейтральный сигнал, а также отсутствующий
// или нулевой ATR дают процентный план (по умолчанию +3% / -2%).
// Для короткого сигнала без ATR проценты зеркальны.
// Поддержку и сопротивление заполняет вызывающий.
func (p *Planner) Plan(sig models.Signal, entry float64, atr models.NullFloat) models.Plan {
	cfg := p.config
	a, ok := atr.Get()
	if sig == models.Neutral || !ok || a <= 0 {
		return p.percent(sig, entry)
	}

	out := models.Plan{Entry: entry, Basis: models.BasisATR}
	if sig.IsShort() {
		out.TakeProfit = entry - a*cfg.TakeProfitATR
		out.StopLoss = entry + a*cfg.StopLossATR
		return out
	}
	out.TakeProfit = entry + a*cfg.TakeProfitATR
	out.StopLoss = entry - a*cfg.StopLossATR
	return out
}

func (p *Planner) percent(sig models.Signal, entry float64) models.Plan {
	cfg := p.config
	out := models.Plan{Entry: entry, Basis: models.BasisPercent}
	if sig.IsShort() {
		out.TakeProfit = entry * (1 - cfg.TakeProfitPct)
		out.StopLoss = entry * (1 + cfg.StopLossPct)
		return out
	}
	out.TakeProfit = entry * (1 + cfg.TakeProfitPct)
	out.StopLoss = entry * (1 - cfg.StopLossPct)
	return out
}

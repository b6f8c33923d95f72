package models

import (
	"fmt"
	"time"
)

// Signal дискретное состояние сигнала
type Signal int

const (
	Neutral Signal = iota
	Long
	LongStrong
	Short
	ShortStrong
)

var signalNames = map[Signal]string{
	Neutral:     "NEUTRAL",
	Long:        "LONG",
	LongStrong:  "LONG_STRONG",
	Short:       "SHORT",
	ShortStrong: "SHORT_STRONG",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// IsLong true для длинных вариантов
func (s Signal) IsLong() bool { return s == Long || s == LongStrong }

// IsShort true для коротких вариантов
func (s Signal) IsShort() bool { return s == Short || s == ShortStrong }

// IsStrong true, если сигнал подтвержден ADX и MFI
func (s Signal) IsStrong() bool { return s == LongStrong || s == ShortStrong }

// MarshalText реализует encoding.TextMarshaler
func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler
func (s *Signal) UnmarshalText(text []byte) error {
	sig, err := ParseSignal(string(text))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// ParseSignal разбирает строковое имя сигнала
func ParseSignal(name string) (Signal, error) {
	for sig, n := range signalNames {
		if n == name {
			return sig, nil
		}
	}
	return Neutral, fmt.Errorf("неизвестный сигнал: %q", name)
}

// Plan basis
const (
	BasisATR     = "atr"
	BasisPercent = "percent"
)

// Plan торговый план для последней свечи
type Plan struct {
	Entry      float64 `json:"entry"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Basis      string  `json:"basis"`
}

// PivotKind тип фрактального уровня
type PivotKind string

const (
	PivotSupport    PivotKind = "support"
	PivotResistance PivotKind = "resistance"
)

// Pivot фрактальный экстремум
type Pivot struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Kind  PivotKind `json:"kind"`
}

// Marker сигнал на конкретной свече, для отрисовки
type Marker struct {
	Index  int       `json:"index"`
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Signal Signal    `json:"signal"`
}

// Result итог работы конвейера анализа
type Result struct {
	RunID       string     `json:"run_id,omitempty"`
	Symbol      string     `json:"symbol"`
	Interval    string     `json:"interval"`
	Snapshots   []Snapshot `json:"snapshots"`
	Signals     []Signal   `json:"signals"`
	Latest      Snapshot   `json:"latest"`
	Signal      Signal     `json:"signal"`
	Plan        Plan       `json:"plan"`
	Pivots      []Pivot    `json:"pivots,omitempty"`
	Sufficient  bool       `json:"sufficient"`
	Warmup      int        `json:"warmup"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Markers возвращает все ненейтральные сигналы ряда
func (r *Result) Markers() []Marker {
	var out []Marker
	for i, sig := range r.Signals {
		if sig == Neutral {
			continue
		}
		out = append(out, Marker{
			Index:  i,
			Time:   r.Snapshots[i].Time,
			Price:  r.Snapshots[i].Close,
			Signal: sig,
		})
	}
	return out
}

// SignalRecord сохраненная запись сигнала
type SignalRecord struct {
	RunID     string    `json:"run_id"`
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Timestamp time.Time `json:"timestamp"`
	Signal    Signal    `json:"signal"`
	Price     float64   `json:"price"`
	ZScore    NullFloat `json:"z_score"`
	ADX       NullFloat `json:"adx"`
	MFI       NullFloat `json:"mfi"`
	Plan      Plan      `json:"plan"`
}

// Record формирует запись для хранилища из результата
func (r *Result) Record() *SignalRecord {
	return &SignalRecord{
		RunID:     r.RunID,
		Symbol:    r.Symbol,
		Interval:  r.Interval,
		Timestamp: r.Latest.Time,
		Signal:    r.Signal,
		Price:     r.Latest.Close,
		ZScore:    r.Latest.ZScore,
		ADX:       r.Latest.ADX,
		MFI:       r.Latest.MFI,
		Plan:      r.Plan,
	}
}

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar представляет одну свечу OHLCV
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series упорядоченная по времени последовательность свечей
type Series struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

// Len возвращает количество свечей
func (s Series) Len() int {
	return len(s.Bars)
}

// Last возвращает последнюю свечу
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes возвращает цены закрытия
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// ValidationError описывает некорректный входной ряд
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "некорректный ряд: " + e.Reason
	}
	return fmt.Sprintf("некорректный ряд: свеча %d: %s", e.Index, e.Reason)
}

// Validate проверяет инварианты ряда. Ряд никогда не исправляется молча.
func (s Series) Validate() error {
	if len(s.Bars) == 0 {
		return &ValidationError{Index: -1, Reason: "пустой ряд"}
	}
	for i, b := range s.Bars {
		if err := b.validate(); err != "" {
			return &ValidationError{Index: i, Reason: err}
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return &ValidationError{Index: i, Reason: "время не возрастает строго"}
		}
	}
	return nil
}

func (b Bar) validate() string {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return "нечисловая цена"
		}
		if p <= 0 {
			return "неположительная цена"
		}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return "некорректный объем"
	}
	if b.Low > math.Min(b.Open, b.Close) || math.Max(b.Open, b.Close) > b.High {
		return "нарушено условие low <= open,close <= high"
	}
	return ""
}

// NullFloat значение индикатора, которое может быть не определено
// из-за нехватки истории
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float возвращает определенное значение
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// Null неопределенное значение
var Null = NullFloat{}

// Get возвращает значение и признак его наличия
func (n NullFloat) Get() (float64, bool) {
	return n.Float64, n.Valid
}

func (n NullFloat) String() string {
	if !n.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", n.Float64)
}

// MarshalJSON сериализует неопределенное значение как null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON разбирает число или null
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Null
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// Snapshot значения индикаторов на одной свече
type Snapshot struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	MA      NullFloat `json:"ma"`
	StdDev  NullFloat `json:"std_dev"`
	ZScore  NullFloat `json:"z_score"`
	ATR     NullFloat `json:"atr"`
	PlusDI  NullFloat `json:"plus_di"`
	MinusDI NullFloat `json:"minus_di"`
	ADX     NullFloat `json:"adx"`
	MFI     NullFloat `json:"mfi"`
	RSI     NullFloat `json:"rsi"`
	Trend   NullFloat `json:"trend"`
}

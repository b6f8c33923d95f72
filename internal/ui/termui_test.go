package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/medallion/pkg/models"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{64123.456, "64123.46"},
		{9000, "9000.00"},
		{1.23456789, "1.2346"},
		{0.000012345678, "0.00001235"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	res := &models.Result{
		Symbol:   "BTCUSDT",
		Interval: "1h",
		Snapshots: []models.Snapshot{
			{Time: ts.Add(-time.Hour), Close: 42100},
			{Time: ts, Close: 42000},
		},
		Signals: []models.Signal{models.Neutral, models.LongStrong},
		Latest: models.Snapshot{
			Time:   ts,
			Close:  42000,
			ZScore: models.Float(-2.345),
			ADX:    models.Float(27.5),
		},
		Signal:      models.LongStrong,
		Plan:        models.Plan{Entry: 42000, TakeProfit: 42500, StopLoss: 41700, Support: 41000, Resistance: 43000, Basis: models.BasisATR},
		Pivots:      []models.Pivot{{Index: 0, Time: ts.Add(-time.Hour), Price: 41000, Kind: models.PivotSupport}},
		Warmup:      200,
		GeneratedAt: ts,
	}

	out := Render(res)
	for _, want := range []string{
		"BTCUSDT", "LONG_STRONG", "-2.35", "27.5", "42500.00", "41700.00",
		"n/a", "support", "Недостаточно истории",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report must contain %q\n%s", want, out)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	results := []*models.Result{
		{Symbol: "BTCUSDT", Interval: "4h", Signal: models.Short, Latest: models.Snapshot{Close: 50000, ZScore: models.Float(2.2)}},
		{Symbol: "BBCA.JK", Interval: "1d", Signal: models.Neutral, Latest: models.Snapshot{Close: 9000}},
	}
	out := RenderSummary(results, map[string]error{"XXXX.JK": errors.New("нет данных")})
	for _, want := range []string{"BTCUSDT", "SHORT", "2.20", "BBCA.JK", "NEUTRAL", "XXXX.JK", "нет данных"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary must contain %q\n%s", want, out)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	if out := RenderHistory("BTCUSDT", nil); !strings.Contains(out, "пуста") {
		t.Errorf("empty history must say so: %q", out)
	}
	out := RenderHistory("BTCUSDT", []*models.SignalRecord{{
		Interval:  "1h",
		Timestamp: time.Date(2025, 2, 3, 4, 0, 0, 0, time.UTC),
		Signal:    models.Long,
		Price:     43000,
		Plan:      models.Plan{TakeProfit: 44290, StopLoss: 42140},
	}})
	for _, want := range []string{"2025-02-03 04:00", "LONG", "43000.00", "44290.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("history must contain %q\n%s", want, out)
		}
	}
}

func TestRenderSummary_FailedSorted(t *testing.T) {
	failed := map[string]error{
		"ZZZUSDT": errors.New("z"),
		"AAAUSDT": errors.New("a"),
		"MMMUSDT": errors.New("m"),
	}
	for run := 0; run < 5; run++ {
		out := RenderSummary(nil, failed)
		a, m, z := strings.Index(out, "AAAUSDT"), strings.Index(out, "MMMUSDT"), strings.Index(out, "ZZZUSDT")
		if a < 0 || !(a < m && m < z) {
			t.Fatalf("failed symbols must be sorted, got positions %d %d %d\n%s", a, m, z, out)
		}
	}
}

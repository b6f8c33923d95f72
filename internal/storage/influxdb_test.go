package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/skalibog/medallion/internal/analysis/seriestest"
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

func configFor(typ string) config.StorageConfig {
	return config.StorageConfig{Type: typ}
}

func TestCandlePoints(t *testing.T) {
	series := seriestest.FromCloses(5, 100, 101)
	points := candlePoints(series)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	line := write.PointToLineProtocol(points[1], time.Second)
	for _, part := range []string{"candles,", "interval=1h", "symbol=TEST", "close=101", "volume=5"} {
		if !strings.Contains(line, part) {
			t.Errorf("line %q must contain %q", line, part)
		}
	}
}

func TestSignalPoint_SkipsUndefined(t *testing.T) {
	rec := &models.SignalRecord{
		RunID:     "run-1",
		Symbol:    "BTCUSDT",
		Interval:  "4h",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Signal:    models.ShortStrong,
		Price:     50000,
		ZScore:    models.Float(2.4),
		Plan:      models.Plan{Entry: 50000, Basis: models.BasisATR},
	}
	line := write.PointToLineProtocol(signalPoint(rec), time.Second)
	for _, part := range []string{"signals,", "symbol=BTCUSDT", `signal="SHORT_STRONG"`, "z_score=2.4", `run_id="run-1"`} {
		if !strings.Contains(line, part) {
			t.Errorf("line %q must contain %q", line, part)
		}
	}
	if strings.Contains(line, "adx=") || strings.Contains(line, "mfi=") {
		t.Errorf("undefined indicators must not be written: %q", line)
	}
}

package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/medallion/pkg/models"
)

// 2025-01-02 00:00 UTC и далее по часу; четвертая свеча пустая,
// последняя повторяет метку предыдущей
const chartFixture = `{"chart":{"result":[{
	"timestamp":[1735776000,1735779600,1735783200,1735786800,1735790400,1735790400],
	"indicators":{"quote":[{
		"open":  [100, 101, 102, null, 104, 104],
		"high":  [101, 103, 104, null, 106, 107],
		"low":   [99,  100, 101, null, 103, 103],
		"close": [101, 102, 103, null, 105, 106],
		"volume":[10,  20,  null, null, 40, 45]
	}]}
}],"error":null}}`

func newYahooServer(t *testing.T, body string, status int, gotPath *string) *YahooSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPath != nil {
			*gotPath = r.URL.Path + "?" + r.URL.RawQuery
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	src, err := NewYahooSource("")
	if err != nil {
		t.Fatal(err)
	}
	src.BaseURL = srv.URL
	return src
}

func TestYahooSource_GetBars(t *testing.T) {
	var path string
	src := newYahooServer(t, chartFixture, http.StatusOK, &path)

	series, err := src.GetBars(context.Background(), "bbca", "1h", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(path, "/v8/finance/chart/BBCA.JK?") || !strings.Contains(path, "interval=1h") || !strings.Contains(path, "range=1mo") {
		t.Errorf("unexpected request: %s", path)
	}
	if series.Symbol != "BBCA.JK" || series.Interval != "1h" {
		t.Errorf("unexpected series header: %s %s", series.Symbol, series.Interval)
	}
	if series.Len() != 4 {
		t.Fatalf("expected 4 bars after dropping empty and duplicate rows, got %d", series.Len())
	}
	if series.Bars[2].Volume != 0 {
		t.Errorf("missing volume must become 0, got %v", series.Bars[2].Volume)
	}
	if last, _ := series.Last(); last.Close != 106 || last.Volume != 45 {
		t.Errorf("duplicate timestamp must keep the latest row: %+v", last)
	}
	if err := series.Validate(); err != nil {
		t.Errorf("parsed series must be valid: %v", err)
	}
}

func TestYahooSource_Limit(t *testing.T) {
	src := newYahooServer(t, chartFixture, http.StatusOK, nil)
	series, err := src.GetBars(context.Background(), "BBCA.JK", "1h", 2)
	if err != nil {
		t.Fatal(err)
	}
	if series.Len() != 2 || series.Bars[1].Close != 106 {
		t.Errorf("expected the last two bars, got %+v", series.Bars)
	}
}

func TestYahooSource_FourHourResample(t *testing.T) {
	var path string
	src := newYahooServer(t, chartFixture, http.StatusOK, &path)

	series, err := src.GetBars(context.Background(), "BBCA", "4h", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(path, "interval=1h") || !strings.Contains(path, "range=2y") {
		t.Errorf("4h must be fetched as 1h over 2y: %s", path)
	}
	if series.Len() != 2 {
		t.Fatalf("expected two 4h buckets, got %d", series.Len())
	}
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	want := []models.Bar{
		{Time: day, Open: 100, High: 104, Low: 99, Close: 103, Volume: 30},
		{Time: day.Add(4 * time.Hour), Open: 104, High: 107, Low: 103, Close: 106, Volume: 45},
	}
	for i, b := range series.Bars {
		w := want[i]
		if !b.Time.Equal(w.Time) || b.Open != w.Open || b.High != w.High || b.Low != w.Low || b.Close != w.Close || b.Volume != w.Volume {
			t.Errorf("bucket %d: got %+v, want %+v", i, b, w)
		}
	}
}

func TestYahooSource_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		src := newYahooServer(t, `{}`, http.StatusNotFound, nil)
		if _, err := src.GetBars(context.Background(), "XXXX", "1d", 10); err == nil {
			t.Error("expected error for 404")
		}
	})
	t.Run("api error", func(t *testing.T) {
		body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`
		src := newYahooServer(t, body, http.StatusOK, nil)
		_, err := src.GetBars(context.Background(), "XXXX", "1d", 10)
		if err == nil || !strings.Contains(err.Error(), "No data found") {
			t.Errorf("expected api error, got %v", err)
		}
	})
	t.Run("interval", func(t *testing.T) {
		src := newYahooServer(t, chartFixture, http.StatusOK, nil)
		if _, err := src.GetBars(context.Background(), "BBCA", "1w", 10); err == nil {
			t.Error("expected interval error")
		}
	})
}

package cache

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/skalibog/medallion/internal/analysis/seriestest"
	"github.com/skalibog/medallion/internal/metrics"
	"github.com/skalibog/medallion/pkg/models"
)

type fakeSource struct {
	calls  int
	series models.Series
	err    error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetBars(_ context.Context, symbol, interval string, limit int) (models.Series, error) {
	f.calls++
	return f.series, f.err
}

// unreachableClient клиент на заведомо закрытом порту
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBarsKey(t *testing.T) {
	if got := barsKey("binance", "BTCUSDT", "4h", 500); got != "bars:binance:BTCUSDT:4h:500" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestRedisSource_FallsBackWhenRedisIsDown(t *testing.T) {
	next := &fakeSource{series: seriestest.FromCloses(1, 1, 2, 3)}
	m := metrics.New()
	src := newRedisSource(unreachableClient(t), next, time.Minute, m)

	got, err := src.GetBars(context.Background(), "TEST", "1h", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 3 || next.calls != 1 {
		t.Errorf("expected bars from the wrapped source, got %d bars after %d calls", got.Len(), next.calls)
	}
	if src.Name() != "fake" {
		t.Errorf("cache must keep the source name, got %s", src.Name())
	}
	if n := testutil.ToFloat64(m.CacheRequests.WithLabelValues("error")); n != 1 {
		t.Errorf("expected one cache error, got %v", n)
	}
}

func TestRedisSource_PropagatesSourceError(t *testing.T) {
	next := &fakeSource{err: errors.New("boom")}
	src := newRedisSource(unreachableClient(t), next, time.Minute, nil)

	if _, err := src.GetBars(context.Background(), "TEST", "1h", 3); err == nil {
		t.Fatal("expected source error")
	}
}

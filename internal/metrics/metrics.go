package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// Metrics метрики сканера. Все методы допускают nil-получатель,
// поэтому компоненты работают и без метрик.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal      prometheus.Counter
	SymbolsTotal    *prometheus.CounterVec // labels: status=ok|error
	SignalsTotal    *prometheus.CounterVec // labels: signal
	FetchDuration   *prometheus.HistogramVec
	AnalyzeDuration prometheus.Histogram
	CacheRequests   *prometheus.CounterVec // labels: result=hit|miss|error
	LastZScore      *prometheus.GaugeVec   // labels: symbol
	LastSignal      *prometheus.GaugeVec   // labels: symbol
}

// New создает метрики в собственном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medallion_scans_total",
			Help: "Total watchlist scans started",
		}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_symbols_total",
			Help: "Symbols analyzed by status",
		}, []string{"status"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_signals_total",
			Help: "Latest-bar signals produced by kind",
		}, []string{"signal"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medallion_fetch_duration_seconds",
			Help:    "Bar fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		AnalyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medallion_analyze_duration_seconds",
			Help:    "Pipeline latency per series",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_cache_requests_total",
			Help: "Bar cache lookups by result",
		}, []string{"result"}),
		LastZScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medallion_last_zscore",
			Help: "Z-score of the latest bar",
		}, []string{"symbol"}),
		LastSignal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medallion_last_signal",
			Help: "Latest signal (0=neutral, 1=long, 2=long strong, 3=short, 4=short strong)",
		}, []string{"symbol"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.ScansTotal,
		m.SymbolsTotal,
		m.SignalsTotal,
		m.FetchDuration,
		m.AnalyzeDuration,
		m.CacheRequests,
		m.LastZScore,
		m.LastSignal,
	)
	return m
}

// Registry реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScanStarted отмечает начало сканирования
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
}

// ObserveFetch время загрузки свечей
func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveResult учитывает успешный анализ символа
func (m *Metrics) ObserveResult(res *models.Result, d time.Duration) {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues("ok").Inc()
	m.AnalyzeDuration.Observe(d.Seconds())
	m.SignalsTotal.WithLabelValues(res.Signal.String()).Inc()
	m.LastSignal.WithLabelValues(res.Symbol).Set(float64(res.Signal))
	if z, ok := res.Latest.ZScore.Get(); ok {
		m.LastZScore.WithLabelValues(res.Symbol).Set(z)
	} else {
		m.LastZScore.DeleteLabelValues(res.Symbol)
	}
}

// SymbolFailed учитывает ошибку по символу
func (m *Metrics) SymbolFailed() {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues("error").Inc()
}

// CacheResult учитывает обращение к кэшу: hit, miss или error
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// Server HTTP-сервер с /metrics
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer создает сервер метрик
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start запускает сервер в отдельной горутине
func (s *Server) Start() {
	go func() {
		logger.Info("Сервер метрик запущен", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка сервера метрик", zap.Error(err))
		}
	}()
}

// Stop останавливает сервер
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

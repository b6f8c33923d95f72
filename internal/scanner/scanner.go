package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/medallion/internal/analysis/aggregator"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/metrics"
	"github.com/skalibog/medallion/internal/storage"
	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// Scanner загружает свечи и прогоняет анализ по списку символов
type Scanner struct {
	source      exchange.Source
	analyzer    *aggregator.Analyzer
	store       storage.Storage
	metrics     *metrics.Metrics
	concurrency int
	newRunID    func() string
}

// Option настройка сканера
type Option func(*Scanner)

// WithStorage сохранять свечи и сигналы в хранилище
func WithStorage(store storage.Storage) Option {
	return func(s *Scanner) { s.store = store }
}

// WithMetrics публиковать метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithConcurrency число символов, обрабатываемых одновременно
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New создает сканер
func New(source exchange.Source, analyzer *aggregator.Analyzer, opts ...Option) *Scanner {
	s := &Scanner{
		source:      source,
		analyzer:    analyzer,
		concurrency: 1,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report итог сканирования
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	// Results в порядке входного списка, без символов с ошибками
	Results []*models.Result
	Failed  map[string]error
}

// Scan анализирует символы параллельно. Ошибка по одному символу не
// прерывает остальные: все ошибки объединяются в возвращаемой ошибке,
// а успешные результаты остаются в отчете.
func (s *Scanner) Scan(ctx context.Context, symbols []string, interval string, limit int) (*Report, error) {
	report := &Report{
		RunID:   s.newRunID(),
		Started: time.Now(),
		Failed:  make(map[string]error),
	}
	s.metrics.ScanStarted()

	logger.Info("SCANNER: запуск сканирования",
		zap.String("run_id", report.RunID),
		zap.Int("symbols", len(symbols)),
		zap.String("interval", interval),
		zap.Int("concurrency", s.concurrency))

	results := make([]*models.Result, len(symbols))
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			res, err := s.analyzeSymbol(gctx, report.RunID, symbol, interval, limit)
			if err != nil {
				s.metrics.SymbolFailed()
				logger.Warn("SCANNER: ошибка анализа символа",
					zap.String("symbol", symbol), zap.Error(err))
				mu.Lock()
				report.Failed[symbol] = err
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", symbol, err))
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	// горутины не возвращают ошибок, отмена видна только через ctx
	_ = g.Wait()

	for _, res := range results {
		if res != nil {
			report.Results = append(report.Results, res)
		}
	}
	report.Duration = time.Since(report.Started)

	logger.Info("SCANNER: сканирование завершено",
		zap.String("run_id", report.RunID),
		zap.Int("ok", len(report.Results)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration))

	return report, errs
}

// Analyze анализирует один символ
func (s *Scanner) Analyze(ctx context.Context, symbol, interval string, limit int) (*models.Result, error) {
	return s.analyzeSymbol(ctx, s.newRunID(), symbol, interval, limit)
}

func (s *Scanner) analyzeSymbol(ctx context.Context, runID, symbol, interval string, limit int) (*models.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchStart := time.Now()
	series, err := s.source.GetBars(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки свечей: %w", err)
	}
	s.metrics.ObserveFetch(s.source.Name(), time.Since(fetchStart))

	analyzeStart := time.Now()
	res, err := s.analyzer.Analyze(series)
	if err != nil {
		return nil, err
	}
	res.RunID = runID
	analyzeDuration := time.Since(analyzeStart)

	if err := s.persist(ctx, series, res); err != nil {
		return nil, err
	}
	s.metrics.ObserveResult(res, analyzeDuration)
	return res, nil
}

func (s *Scanner) persist(ctx context.Context, series models.Series, res *models.Result) error {
	if s.store == nil {
		return nil
	}
	// свечи, прочитанные из самого хранилища, не перезаписываем
	if s.store.Name() != s.source.Name() {
		if err := s.store.SaveCandles(ctx, series); err != nil {
			return fmt.Errorf("ошибка сохранения свечей: %w", err)
		}
	}
	if err := s.store.SaveSignal(ctx, res.Record()); err != nil {
		return fmt.Errorf("ошибка сохранения сигнала: %w", err)
	}
	return nil
}

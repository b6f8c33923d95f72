package aggregator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/analysis/indicator"
	"github.com/skalibog/medallion/internal/analysis/levels"
	"github.com/skalibog/medallion/internal/analysis/plan"
	"github.com/skalibog/medallion/internal/analysis/signal"
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// Analyzer объединяет индикаторы, классификатор, планировщик и уровни
// в один конвейер. Не хранит состояния между вызовами и безопасен для
// параллельного использования.
type Analyzer struct {
	config     config.AnalysisConfig
	engine     *indicator.Engine
	classifier *signal.Classifier
	planner    *plan.Planner
	detector   *levels.Detector
	now        func() time.Time
}

// NewAnalyzer создает конвейер анализа
func NewAnalyzer(cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{
		config:     cfg,
		engine:     indicator.NewEngine(cfg.Indicators),
		classifier: signal.NewClassifier(cfg.Signal),
		planner:    plan.NewPlanner(cfg.Plan),
		detector:   levels.NewDetector(cfg.Levels),
		now:        time.Now,
	}
}

// Analyze прогоняет ряд через весь конвейер
func (a *Analyzer) Analyze(series models.Series) (*models.Result, error) {
	if err := a.config.Validate(); err != nil {
		return nil, fmt.Errorf("некорректные настройки анализа: %w", err)
	}
	snapshots, err := a.engine.Compute(series)
	if err != nil {
		return nil, fmt.Errorf("ошибка расчета индикаторов %s: %w", series.Symbol, err)
	}

	signals := a.classifier.ClassifyAll(snapshots)
	latest := snapshots[len(snapshots)-1]
	sig := signals[len(signals)-1]

	tradePlan := a.planner.Plan(sig, latest.Close, latest.ATR)
	if support, resistance, ok := a.detector.Band(series.Bars, latest.Close); ok {
		tradePlan.Support = support
		tradePlan.Resistance = resistance
	}

	warmup := a.engine.Warmup()
	result := &models.Result{
		Symbol:      series.Symbol,
		Interval:    series.Interval,
		Snapshots:   snapshots,
		Signals:     signals,
		Latest:      latest,
		Signal:      sig,
		Plan:        tradePlan,
		Sufficient:  series.Len() >= warmup,
		Warmup:      warmup,
		GeneratedAt: a.now(),
	}
	if a.config.Levels.Mode == config.LevelsFractal || a.config.Levels.Pivots {
		result.Pivots = a.detector.Pivots(series.Bars)
	}

	if !result.Sufficient {
		logger.Warn("AGGREGATOR: недостаточно истории для всех индикаторов",
			zap.String("symbol", series.Symbol),
			zap.Int("свечей", series.Len()),
			zap.Int("требуется_свечей", warmup))
	}
	logger.Debug("AGGREGATOR: анализ завершен",
		zap.String("symbol", series.Symbol),
		zap.Stringer("signal", sig),
		zap.Stringer("z", latest.ZScore),
		zap.Stringer("adx", latest.ADX),
		zap.Stringer("mfi", latest.MFI))

	return result, nil
}

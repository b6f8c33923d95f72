package commands

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/cache"
	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/metrics"
	"github.com/skalibog/medallion/internal/storage"
	"github.com/skalibog/medallion/pkg/logger"
)

// app собранные зависимости команды
type app struct {
	cfg     *config.Config
	source  exchange.Source
	store   storage.Storage
	metrics *metrics.Metrics
	closers []func() error
	// тикеры в хранилище, загружаются при первом обращении
	stored []string
}

// loadConfig читает конфигурацию и применяет глобальные флаги
func loadConfig(source string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if source != "" {
		cfg.Exchange.Source = source
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:    cfg.Log.Level,
		File:     cfg.Log.File,
		JSONFile: cfg.Log.JSONFile,
		Console:  cfg.Log.Console,
	}); err != nil {
		return nil, fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	return cfg, nil
}

// newApp создает хранилище, источник и кэш по конфигурации
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	if cfg.Exchange.Source == "storage" {
		a.source = store
		return a, nil
	}

	source, err := exchange.NewSource(cfg.Exchange)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	a.source = source

	if cfg.Cache.Enabled {
		cached, err := cache.NewRedisSource(cfg.Cache, source, a.metrics)
		if err != nil {
			logger.Warn("Кэш Redis недоступен, работаем без него", zap.Error(err))
		} else {
			a.source = cached
			a.closers = append(a.closers, cached.Close)
		}
	}
	return a, nil
}

// normalize приводит символ к виду источника.
// Для источника storage символ сопоставляется с сохраненными тикерами.
func (a *app) normalize(ctx context.Context, symbol string) string {
	if a.cfg.Exchange.Source != "storage" {
		return exchange.NormalizeSymbol(a.cfg.Exchange.Source, symbol)
	}
	if a.stored == nil {
		known, err := a.store.GetSymbols(ctx)
		if err != nil {
			logger.Warn("Не удалось получить список символов хранилища", zap.Error(err))
		}
		a.stored = append([]string{}, known...)
	}
	return exchange.ResolveStoredSymbol(symbol, a.stored)
}

// Close освобождает ресурсы в обратном порядке
func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	logger.Sync()
	return err
}

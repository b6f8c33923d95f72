package storage

import (
	"context"
	"fmt"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/models"
)

// Storage интерфейс для работы с хранилищем свечей и сигналов.
// Хранилище само является источником свечей (Name, GetBars).
type Storage interface {
	// Методы для свечей
	Name() string
	SaveCandles(ctx context.Context, series models.Series) error
	GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error)

	// Методы для сигналов
	SaveSignal(ctx context.Context, rec *models.SignalRecord) error
	GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error)

	// Вспомогательные методы
	GetSymbols(ctx context.Context) ([]string, error)
	Close() error
}

// New создает хранилище по настройкам
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "none":
		return NoopStorage{}, nil
	case "influxdb":
		s, err := NewInfluxDBStorage(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища %q", cfg.Type)
	}
}

// NoopStorage ничего не сохраняет
type NoopStorage struct{}

func (NoopStorage) Name() string { return "none" }

func (NoopStorage) SaveCandles(context.Context, models.Series) error { return nil }

func (NoopStorage) GetBars(_ context.Context, symbol, _ string, _ int) (models.Series, error) {
	return models.Series{}, fmt.Errorf("хранилище не настроено, свечи %s недоступны", symbol)
}

func (NoopStorage) SaveSignal(context.Context, *models.SignalRecord) error { return nil }

func (NoopStorage) GetSignalHistory(context.Context, string, int) ([]*models.SignalRecord, error) {
	return nil, nil
}

func (NoopStorage) GetSymbols(context.Context) ([]string, error) { return nil, nil }

func (NoopStorage) Close() error { return nil }

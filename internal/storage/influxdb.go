// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	logger.Info("Подключено хранилище InfluxDB",
		zap.String("url", cfg.URL),
		zap.String("bucket", cfg.Bucket))

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Name имя источника
func (s *InfluxDBStorage) Name() string { return "influxdb" }

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() error {
	s.client.Close()
	return nil
}

// SaveCandles сохраняет свечи ряда
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, series models.Series) error {
	if series.Len() == 0 {
		return nil
	}
	if err := s.writeAPI.WritePoint(ctx, candlePoints(series)...); err != nil {
		return fmt.Errorf("ошибка записи свечей %s: %w", series.Symbol, err)
	}
	return nil
}

func candlePoints(series models.Series) []*write.Point {
	points := make([]*write.Point, 0, series.Len())
	for _, b := range series.Bars {
		points = append(points, influxdb2.NewPoint(
			"candles",
			map[string]string{
				"symbol":   series.Symbol,
				"interval": series.Interval,
			},
			map[string]interface{}{
				"open":   b.Open,
				"high":   b.High,
				"low":    b.Low,
				"close":  b.Close,
				"volume": b.Volume,
			},
			b.Time,
		))
	}
	return points
}

// GetBars получает последние limit свечей в хронологическом порядке
func (s *InfluxDBStorage) GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error) {
	// Формируем Flux-запрос
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: 0)
			|> filter(fn: (r) => r._measurement == "candles")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r.interval == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, interval, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return models.Series{}, fmt.Errorf("ошибка запроса свечей: %w", err)
	}

	var bars []models.Bar
	for result.Next() {
		record := result.Record()
		open, _ := record.ValueByKey("open").(float64)
		high, _ := record.ValueByKey("high").(float64)
		low, _ := record.ValueByKey("low").(float64)
		closePrice, _ := record.ValueByKey("close").(float64)
		volume, _ := record.ValueByKey("volume").(float64)

		bars = append(bars, models.Bar{
			Time:   record.Time(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	if result.Err() != nil {
		return models.Series{}, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	// запрос отдает свечи от новых к старым
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return models.Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

// SaveSignal сохраняет сигнал
func (s *InfluxDBStorage) SaveSignal(ctx context.Context, rec *models.SignalRecord) error {
	if err := s.writeAPI.WritePoint(ctx, signalPoint(rec)); err != nil {
		return fmt.Errorf("ошибка записи сигнала %s: %w", rec.Symbol, err)
	}
	return nil
}

func signalPoint(rec *models.SignalRecord) *write.Point {
	fields := map[string]interface{}{
		"run_id":      rec.RunID,
		"signal":      rec.Signal.String(),
		"price":       rec.Price,
		"entry":       rec.Plan.Entry,
		"take_profit": rec.Plan.TakeProfit,
		"stop_loss":   rec.Plan.StopLoss,
		"support":     rec.Plan.Support,
		"resistance":  rec.Plan.Resistance,
		"basis":       rec.Plan.Basis,
	}
	// неопределенные индикаторы не пишем
	for name, v := range map[string]models.NullFloat{"z_score": rec.ZScore, "adx": rec.ADX, "mfi": rec.MFI} {
		if v.Valid {
			fields[name] = v.Float64
		}
	}
	return influxdb2.NewPoint(
		"signals",
		map[string]string{
			"symbol":   rec.Symbol,
			"interval": rec.Interval,
		},
		fields,
		rec.Timestamp,
	)
}

// GetSignalHistory получает историю сигналов, от новых к старым
func (s *InfluxDBStorage) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: 0)
			|> filter(fn: (r) => r._measurement == "signals")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> group()
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, limit)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}

	var records []*models.SignalRecord
	for result.Next() {
		record := result.Record()
		name, _ := record.ValueByKey("signal").(string)
		sig, err := models.ParseSignal(name)
		if err != nil {
			logger.Warn("Пропущена запись с неизвестным сигналом", zap.String("signal", name))
			continue
		}

		rec := &models.SignalRecord{
			Symbol:    symbol,
			Timestamp: record.Time(),
			Signal:    sig,
			ZScore:    nullFloat(record.ValueByKey("z_score")),
			ADX:       nullFloat(record.ValueByKey("adx")),
			MFI:       nullFloat(record.ValueByKey("mfi")),
		}
		rec.RunID, _ = record.ValueByKey("run_id").(string)
		rec.Interval, _ = record.ValueByKey("interval").(string)
		rec.Price, _ = record.ValueByKey("price").(float64)
		rec.Plan.Entry, _ = record.ValueByKey("entry").(float64)
		rec.Plan.TakeProfit, _ = record.ValueByKey("take_profit").(float64)
		rec.Plan.StopLoss, _ = record.ValueByKey("stop_loss").(float64)
		rec.Plan.Support, _ = record.ValueByKey("support").(float64)
		rec.Plan.Resistance, _ = record.ValueByKey("resistance").(float64)
		rec.Plan.Basis, _ = record.ValueByKey("basis").(string)
		records = append(records, rec)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return records, nil
}

// GetSymbols возвращает список символов, по которым есть свечи
func (s *InfluxDBStorage) GetSymbols(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		import "influxdata/influxdb/schema"
		schema.tagValues(bucket: "%s", tag: "symbol", predicate: (r) => r._measurement == "candles", start: 0)
	`, s.bucket)

	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса символов: %w", err)
	}

	var symbols []string
	for result.Next() {
		if symbol, ok := result.Record().Value().(string); ok {
			symbols = append(symbols, symbol)
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	return symbols, nil
}

func nullFloat(v interface{}) models.NullFloat {
	if f, ok := v.(float64); ok {
		return models.Float(f)
	}
	return models.Null
}

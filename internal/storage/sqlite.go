package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// SQLiteStorage встроенное хранилище свечей и истории сигналов
type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStorage открывает (или создает) базу и применяет миграции
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка включения WAL: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка миграции: %w", err)
	}

	logger.Info("Открыто хранилище SQLite", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			time     INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL    NOT NULL,
			PRIMARY KEY (symbol, interval, time)
		)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT,
			symbol      TEXT    NOT NULL,
			interval    TEXT    NOT NULL,
			timestamp   INTEGER NOT NULL,
			signal      TEXT    NOT NULL,
			price       REAL,
			z_score     REAL,
			adx         REAL,
			mfi         REAL,
			entry       REAL,
			take_profit REAL,
			stop_loss   REAL,
			support     REAL,
			resistance  REAL,
			basis       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Name имя источника
func (s *SQLiteStorage) Name() string { return "sqlite" }

// Close закрывает базу
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveCandles сохраняет свечи; существующая свеча с той же меткой перезаписывается
func (s *SQLiteStorage) SaveCandles(ctx context.Context, series models.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO candles
		(symbol, interval, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.ExecContext(ctx, series.Symbol, series.Interval, b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("ошибка записи свечи %s: %w", series.Symbol, err)
		}
	}
	return tx.Commit()
}

// GetBars последние limit свечей в хронологическом порядке
func (s *SQLiteStorage) GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT time, open, high, low, close, volume FROM (
			SELECT * FROM candles WHERE symbol = ? AND interval = ?
			ORDER BY time DESC LIMIT ?
		) ORDER BY time ASC`, symbol, interval, limit)
	if err != nil {
		return models.Series{}, fmt.Errorf("ошибка запроса свечей: %w", err)
	}
	defer rows.Close()

	series := models.Series{Symbol: symbol, Interval: interval}
	for rows.Next() {
		var ts int64
		var b models.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return models.Series{}, fmt.Errorf("ошибка чтения свечи: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		series.Bars = append(series.Bars, b)
	}
	return series, rows.Err()
}

// SaveSignal сохраняет запись сигнала
func (s *SQLiteStorage) SaveSignal(ctx context.Context, rec *models.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO signals
		(run_id, symbol, interval, timestamp, signal, price, z_score, adx, mfi,
		 entry, take_profit, stop_loss, support, resistance, basis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Symbol, rec.Interval, rec.Timestamp.Unix(), rec.Signal.String(), rec.Price,
		toSQL(rec.ZScore), toSQL(rec.ADX), toSQL(rec.MFI),
		rec.Plan.Entry, rec.Plan.TakeProfit, rec.Plan.StopLoss,
		rec.Plan.Support, rec.Plan.Resistance, rec.Plan.Basis)
	if err != nil {
		return fmt.Errorf("ошибка записи сигнала %s: %w", rec.Symbol, err)
	}
	return nil
}

// GetSignalHistory последние limit сигналов по символу, от новых к старым
func (s *SQLiteStorage) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, interval, timestamp, signal, price,
			z_score, adx, mfi, entry, take_profit, stop_loss, support, resistance, basis
		FROM signals WHERE symbol = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}
	defer rows.Close()

	var records []*models.SignalRecord
	for rows.Next() {
		var (
			rec         = &models.SignalRecord{Symbol: symbol}
			runID       sql.NullString
			ts          int64
			name        string
			z, adx, mfi sql.NullFloat64
		)
		if err := rows.Scan(&runID, &rec.Interval, &ts, &name, &rec.Price, &z, &adx, &mfi,
			&rec.Plan.Entry, &rec.Plan.TakeProfit, &rec.Plan.StopLoss,
			&rec.Plan.Support, &rec.Plan.Resistance, &rec.Plan.Basis); err != nil {
			return nil, fmt.Errorf("ошибка чтения сигнала: %w", err)
		}
		sig, err := models.ParseSignal(name)
		if err != nil {
			return nil, err
		}
		rec.RunID = runID.String
		rec.Timestamp = time.Unix(ts, 0).UTC()
		rec.Signal = sig
		rec.ZScore, rec.ADX, rec.MFI = fromSQL(z), fromSQL(adx), fromSQL(mfi)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSymbols символы, по которым есть свечи
func (s *SQLiteStorage) GetSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM candles ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса символов: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

func toSQL(n models.NullFloat) sql.NullFloat64 {
	return sql.NullFloat64{Float64: n.Float64, Valid: n.Valid}
}

func fromSQL(n sql.NullFloat64) models.NullFloat {
	if !n.Valid {
		return models.Null
	}
	return models.Float(n.Float64)
}

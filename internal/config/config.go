package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Trading  TradingConfig  `yaml:"trading"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Scan     ScanConfig     `yaml:"scan"`
	Log      LogConfig      `yaml:"log"`
}

// ExchangeConfig содержит настройки источника котировок
type ExchangeConfig struct {
	Source    string `yaml:"source"` // binance | yahoo | storage
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
	Proxy     string `yaml:"proxy"`
}

// TradingConfig содержит список инструментов и таймфрейм
type TradingConfig struct {
	Symbols  []string `yaml:"symbols"`
	Interval string   `yaml:"interval"`
	Limit    int      `yaml:"limit"`
}

// AnalysisConfig настройки конвейера сигналов
type AnalysisConfig struct {
	Indicators IndicatorConfig `yaml:"indicators"`
	Signal     SignalConfig    `yaml:"signal"`
	Plan       PlanConfig      `yaml:"plan"`
	Levels     LevelsConfig    `yaml:"levels"`
}

// Режимы расчета направленного движения
const (
	DMClip      = "clip"
	DMExclusive = "exclusive"
	DMWilder    = "wilder"
)

// IndicatorConfig окна скользящих индикаторов
type IndicatorConfig struct {
	MAWindow    int    `yaml:"ma_window"`
	ATRWindow   int    `yaml:"atr_window"`
	ADXWindow   int    `yaml:"adx_window"`
	MFIWindow   int    `yaml:"mfi_window"`
	RSIWindow   int    `yaml:"rsi_window"`
	TrendWindow int    `yaml:"trend_window"`
	DMMode      string `yaml:"dm_mode"`
}

// SignalConfig пороги классификатора
type SignalConfig struct {
	ZThreshold  float64 `yaml:"z_threshold"`
	Confluence  bool    `yaml:"confluence"`
	Strict      bool    `yaml:"strict"`
	ADXMin      float64 `yaml:"adx_min"`
	MFILow      float64 `yaml:"mfi_low"`
	MFIHigh     float64 `yaml:"mfi_high"`
	TrendFilter bool    `yaml:"trend_filter"`
}

// PlanConfig множители TP/SL
type PlanConfig struct {
	TakeProfitATR float64 `yaml:"tp_multiplier"`
	StopLossATR   float64 `yaml:"sl_multiplier"`
	TakeProfitPct float64 `yaml:"fallback_tp_pct"`
	StopLossPct   float64 `yaml:"fallback_sl_pct"`
}

// Режимы поиска уровней
const (
	LevelsRolling = "rolling"
	LevelsFractal = "fractal"
)

// LevelsConfig настройки поиска поддержки и сопротивления
type LevelsConfig struct {
	Mode          string `yaml:"mode"`
	RollingWindow int    `yaml:"rolling_window"`
	PivotWindow   int    `yaml:"pivot_window"`
	Pivots        bool   `yaml:"pivots"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Type         string `yaml:"type"` // influxdb | sqlite | none
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
	Path         string `yaml:"path"`
}

// CacheConfig настройки кэша свечей в Redis
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL возвращает время жизни записи
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ScanConfig настройки параллельного сканирования
type ScanConfig struct {
	Concurrency int    `yaml:"concurrency"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Console  bool   `yaml:"console"`
}

// DefaultIndicators окна по умолчанию
func DefaultIndicators() IndicatorConfig {
	return IndicatorConfig{
		MAWindow:    20,
		ATRWindow:   14,
		ADXWindow:   14,
		MFIWindow:   14,
		RSIWindow:   14,
		TrendWindow: 200,
		DMMode:      DMClip,
	}
}

// DefaultSignal пороги по умолчанию
func DefaultSignal() SignalConfig {
	return SignalConfig{
		ZThreshold: 2.1,
		Confluence: true,
		ADXMin:     20,
		MFILow:     30,
		MFIHigh:    70,
	}
}

// DefaultPlan множители по умолчанию
func DefaultPlan() PlanConfig {
	return PlanConfig{
		TakeProfitATR: 2.5,
		StopLossATR:   1.5,
		TakeProfitPct: 0.03,
		StopLossPct:   0.02,
	}
}

// DefaultLevels настройки уровней по умолчанию
func DefaultLevels() LevelsConfig {
	return LevelsConfig{
		Mode:          LevelsRolling,
		RollingWindow: 50,
		PivotWindow:   150,
	}
}

// DefaultAnalysis полный набор настроек анализа по умолчанию
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Indicators: DefaultIndicators(),
		Signal:     DefaultSignal(),
		Plan:       DefaultPlan(),
		Levels:     DefaultLevels(),
	}
}

// Default конфигурация, с которой работает приложение без файла
func Default() Config {
	return Config{
		Exchange: ExchangeConfig{Source: "binance"},
		Trading: TradingConfig{
			Symbols:  []string{"BTCUSDT"},
			Interval: "1h",
			Limit:    500,
		},
		Analysis: DefaultAnalysis(),
		Storage:  StorageConfig{Type: "none", Path: "data/medallion.db"},
		Cache:    CacheConfig{Addr: "localhost:6379", TTLSeconds: 60},
		Scan:     ScanConfig{Concurrency: 4},
		Log:      LogConfig{Level: "info", File: "app.log", JSONFile: "app.json.log"},
	}
}

// Load загружает конфигурацию из файла поверх значений по умолчанию.
// Отсутствующий файл не является ошибкой.
func Load(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && c.Exchange.Proxy == "" {
		c.Exchange.Proxy = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Storage.Token = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("MEDALLION_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Exchange.Source {
	case "binance", "yahoo", "storage":
	default:
		return fmt.Errorf("exchange.source: неизвестный источник %q", c.Exchange.Source)
	}
	if c.Trading.Limit <= 0 {
		return fmt.Errorf("trading.limit должен быть положительным")
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	switch c.Storage.Type {
	case "none", "":
	case "influxdb":
		if c.Storage.URL == "" || c.Storage.Bucket == "" {
			return fmt.Errorf("storage: для influxdb нужны url и bucket")
		}
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path обязателен для sqlite")
		}
	default:
		return fmt.Errorf("storage.type: неизвестный тип %q", c.Storage.Type)
	}
	if c.Exchange.Source == "storage" && (c.Storage.Type == "none" || c.Storage.Type == "") {
		return fmt.Errorf("exchange.source=storage требует настроенного хранилища")
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds должен быть положительным")
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency должен быть положительным")
	}
	return nil
}

// Validate проверяет настройки анализа
func (a AnalysisConfig) Validate() error {
	if err := a.Indicators.Validate(); err != nil {
		return err
	}
	if err := a.Signal.Validate(); err != nil {
		return err
	}
	if err := a.Plan.Validate(); err != nil {
		return err
	}
	return a.Levels.Validate()
}

// Validate проверяет окна индикаторов
func (c IndicatorConfig) Validate() error {
	if c.MAWindow < 2 {
		return fmt.Errorf("indicators.ma_window должен быть не меньше 2")
	}
	windows := map[string]int{
		"atr_window":   c.ATRWindow,
		"adx_window":   c.ADXWindow,
		"mfi_window":   c.MFIWindow,
		"rsi_window":   c.RSIWindow,
		"trend_window": c.TrendWindow,
	}
	for name, w := range windows {
		if w <= 0 {
			return fmt.Errorf("indicators.%s должен быть положительным", name)
		}
	}
	if c.RSIWindow < 2 {
		return fmt.Errorf("indicators.rsi_window должен быть не меньше 2")
	}
	switch c.DMMode {
	case DMClip, DMExclusive, "":
	case DMWilder:
		if c.ADXWindow < 2 {
			return fmt.Errorf("indicators.adx_window должен быть не меньше 2 для режима wilder")
		}
	default:
		return fmt.Errorf("indicators.dm_mode: неизвестный режим %q", c.DMMode)
	}
	return nil
}

// Validate проверяет пороги
func (c SignalConfig) Validate() error {
	if c.ZThreshold <= 0 {
		return fmt.Errorf("signal.z_threshold должен быть положительным")
	}
	if c.MFILow < 0 || c.MFIHigh > 100 || c.MFILow > c.MFIHigh {
		return fmt.Errorf("signal: некорректные границы MFI %.1f..%.1f", c.MFILow, c.MFIHigh)
	}
	return nil
}

// Validate проверяет множители
func (c PlanConfig) Validate() error {
	if c.TakeProfitATR <= 0 || c.StopLossATR <= 0 {
		return fmt.Errorf("plan: множители ATR должны быть положительными")
	}
	if c.TakeProfitPct <= 0 || c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		return fmt.Errorf("plan: некорректные проценты TP/SL")
	}
	return nil
}

// Validate проверяет режим уровней
func (c LevelsConfig) Validate() error {
	switch c.Mode {
	case LevelsRolling, LevelsFractal:
	default:
		return fmt.Errorf("levels.mode: неизвестный режим %q", c.Mode)
	}
	if c.RollingWindow <= 0 || c.PivotWindow < 5 {
		return fmt.Errorf("levels: окно rolling > 0 и окно pivot >= 5")
	}
	return nil
}

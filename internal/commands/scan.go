package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/analysis/aggregator"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/metrics"
	"github.com/skalibog/medallion/internal/scanner"
	"github.com/skalibog/medallion/internal/ui"
	"github.com/skalibog/medallion/pkg/logger"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Параллельный анализ списка инструментов",
	Long: `Анализирует все символы из trading.symbols (или --symbols), выводит сводную
таблицу и сохраняет результаты в хранилище. Если задан scan.metrics_addr,
после сканирования /metrics остается доступным до прерывания.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSlice("symbols", nil, "список символов через запятую")
	scanCmd.Flags().String("source", "", "источник: binance, yahoo или storage")
	scanCmd.Flags().StringP("interval", "i", "", "таймфрейм: 15m, 30m, 1h, 4h, 1d")
	scanCmd.Flags().IntP("limit", "l", 0, "число свечей")
	scanCmd.Flags().Int("concurrency", 0, "число символов, обрабатываемых одновременно")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	cfg, err := loadConfig(source)
	if err != nil {
		return err
	}

	symbols, _ := cmd.Flags().GetStringSlice("symbols")
	if len(symbols) == 0 {
		symbols = cfg.Trading.Symbols
	}
	if len(symbols) == 0 {
		return fmt.Errorf("не задан ни один символ")
	}
	interval, _ := cmd.Flags().GetString("interval")
	if interval == "" {
		interval = cfg.Trading.Interval
	}
	if err := exchange.ValidInterval(interval); err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.Trading.Limit
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Scan.Concurrency
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *metrics.Server
	if cfg.Scan.MetricsAddr != "" {
		srv = metrics.NewServer(cfg.Scan.MetricsAddr, a.metrics)
		srv.Start()
	}

	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = a.normalize(ctx, s)
	}

	sc := scanner.New(a.source, aggregator.NewAnalyzer(cfg.Analysis),
		scanner.WithStorage(a.store),
		scanner.WithMetrics(a.metrics),
		scanner.WithConcurrency(concurrency))

	report, scanErr := sc.Scan(ctx, normalized, interval, limit)
	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSummary(report.Results, report.Failed))
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d ok, %d с ошибками за %s\n",
		report.RunID, len(report.Results), len(report.Failed), report.Duration.Round(time.Millisecond))

	if srv != nil {
		logger.Info("Сканирование завершено, /metrics доступен до прерывания",
			zap.String("addr", cfg.Scan.MetricsAddr))
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("Ошибка остановки сервера метрик", zap.Error(err))
		}
	}

	// частичный успех не считается ошибкой команды
	if len(report.Results) == 0 && scanErr != nil {
		return fmt.Errorf("ни один символ не обработан: %w", scanErr)
	}
	for _, err := range multierr.Errors(scanErr) {
		logger.Warn("Символ пропущен", zap.Error(err))
	}
	return nil
}

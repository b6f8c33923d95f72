package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skalibog/medallion/internal/analysis/aggregator"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/scanner"
	"github.com/skalibog/medallion/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Анализ одного инструмента",
	Long:  "Загружает свечи, считает индикаторы и выводит сигнал с торговым планом",
	Example: `  medallion analyze --symbol BTCUSDT --interval 4h
  medallion analyze --symbol BBCA --source yahoo --interval 1d`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("symbol", "s", "", "символ (BTCUSDT, BBCA, SPX500)")
	analyzeCmd.Flags().String("source", "", "источник: binance, yahoo или storage")
	analyzeCmd.Flags().StringP("interval", "i", "", "таймфрейм: 15m, 30m, 1h, 4h, 1d")
	analyzeCmd.Flags().IntP("limit", "l", 0, "число свечей")
	analyzeCmd.Flags().Bool("save", false, "сохранить свечи и сигнал в хранилище")
	analyzeCmd.Flags().Bool("json", false, "вывести результат в JSON")
	_ = analyzeCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	cfg, err := loadConfig(source)
	if err != nil {
		return err
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

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []scanner.Option{scanner.WithMetrics(a.metrics)}
	if save, _ := cmd.Flags().GetBool("save"); save {
		opts = append(opts, scanner.WithStorage(a.store))
	}
	sc := scanner.New(a.source, aggregator.NewAnalyzer(cfg.Analysis), opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	symbol, _ := cmd.Flags().GetString("symbol")
	res, err := sc.Analyze(ctx, a.normalize(ctx, symbol), interval, limit)
	if err != nil {
		return fmt.Errorf("ошибка анализа %s: %w", symbol, err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Render(res))
	return nil
}

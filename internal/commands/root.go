package commands

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

// rootCmd базовая команда без подкоманд
var rootCmd = &cobra.Command{
	Use:   "medallion",
	Short: "Сигналы возврата к среднему по Z-Score",
	Long: `Medallion считает индикаторы по свечам Binance или Yahoo Finance
(Z-Score, ATR, ADX, MFI, RSI), классифицирует последний бар и строит
торговый план с уровнями поддержки и сопротивления.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute запускает корневую команду
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "путь к файлу конфигурации")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логирования (debug, info, warn, error)")
}

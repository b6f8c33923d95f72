package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skalibog/medallion/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "История сохраненных сигналов",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		if cfg.Storage.Type == "" || cfg.Storage.Type == "none" {
			return fmt.Errorf("история недоступна: хранилище не настроено (storage.type)")
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		symbol, _ := cmd.Flags().GetString("symbol")
		limit, _ := cmd.Flags().GetInt("limit")
		symbol = a.normalize(cmd.Context(), symbol)

		records, err := a.store.GetSignalHistory(cmd.Context(), symbol, limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderHistory(symbol, records))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringP("symbol", "s", "", "символ")
	historyCmd.Flags().IntP("limit", "l", 20, "число записей")
	_ = historyCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(historyCmd)
}

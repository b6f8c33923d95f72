package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skalibog/medallion/internal/analysis/seriestest"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/storage"
	"github.com/skalibog/medallion/pkg/models"
)

// setupStore создает базу со свечами и конфигурацию, читающую из нее
func setupStore(t *testing.T) string {
	t.Helper()
	return setupStoreFor(t, "DIP", "DIP")
}

// setupStoreFor сохраняет свечи под тикером stored, а в конфигурацию
// записывает пользовательский символ configured
func setupStoreFor(t *testing.T, stored, configured string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "medallion.db")

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	series := seriestest.InjectDip(seriestest.Downtrend(250, 300, 1), 249, 18)
	series.Symbol = stored
	if err := store.SaveCandles(context.Background(), series); err != nil {
		t.Fatal(err)
	}
	store.Close()

	cfg := fmt.Sprintf(`
exchange:
  source: storage
trading:
  symbols: [%s]
  interval: 1h
storage:
  type: sqlite
  path: %q
log:
  level: error
  file: %q
  json_file: %q
`, configured, dbPath, filepath.Join(dir, "app.log"), filepath.Join(dir, "app.json.log"))

	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestCommands_AnalyzeScanHistory(t *testing.T) {
	cfgPath := setupStore(t)

	out := run(t, "analyze", "-c", cfgPath, "--symbol", "dip", "--json")
	var res struct {
		Symbol     string        `json:"symbol"`
		Signal     models.Signal `json:"signal"`
		Sufficient bool          `json:"sufficient"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("analyze output is not JSON: %v\n%s", err, out)
	}
	if res.Symbol != "DIP" || res.Signal != models.LongStrong || !res.Sufficient {
		t.Errorf("unexpected analyze result: %+v", res)
	}

	out = run(t, "scan", "-c", cfgPath)
	if !strings.Contains(out, "LONG_STRONG") || !strings.Contains(out, "1 ok") {
		t.Errorf("unexpected scan output:\n%s", out)
	}

	out = run(t, "history", "-c", cfgPath, "--symbol", "DIP")
	if !strings.Contains(out, "LONG_STRONG") || !strings.Contains(out, "ИСТОРИЯ DIP") {
		t.Errorf("scan must persist the signal:\n%s", out)
	}
}

func TestCommands_BadInterval(t *testing.T) {
	cfgPath := setupStore(t)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"scan", "-c", cfgPath, "--interval", "1w"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected interval error")
	}
}

func TestCommands_StorageResolvesYahooTicker(t *testing.T) {
	cfgPath := setupStoreFor(t, exchange.NormalizeSymbol("yahoo", "BBCA"), "bbca")

	out := run(t, "analyze", "-c", cfgPath, "--symbol", "bbca", "--json", "--save")
	var res struct {
		Symbol string        `json:"symbol"`
		Signal models.Signal `json:"signal"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("analyze output is not JSON: %v\n%s", err, out)
	}
	if res.Symbol != "BBCA.JK" || res.Signal != models.LongStrong {
		t.Errorf("unexpected analyze result: %+v", res)
	}

	out = run(t, "scan", "-c", cfgPath, "--interval", "1h")
	if !strings.Contains(out, "BBCA.JK") || !strings.Contains(out, "1 ok") {
		t.Errorf("scan must find the stored ticker:\n%s", out)
	}

	out = run(t, "history", "-c", cfgPath, "--symbol", "BBCA")
	if !strings.Contains(out, "ИСТОРИЯ BBCA.JK") || !strings.Contains(out, "LONG_STRONG") {
		t.Errorf("history must resolve the stored ticker:\n%s", out)
	}
}

package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/skalibog/medallion/pkg/models"
)

// Стили отчета
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	mutedColor     = lipgloss.Color("#999999")

	appStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(mutedColor).Width(14)
	footerStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// Render отчет по одному инструменту
func Render(res *models.Result) string {
	title := titleStyle.Render(fmt.Sprintf("MEDALLION %s %s", res.Symbol, res.Interval))

	latest := res.Latest
	indicators := strings.Join([]string{
		row("Цена", FormatPrice(latest.Close)),
		row("MA", formatNull(latest.MA, 2)),
		row("Z-Score", formatNull(latest.ZScore, 2)),
		row("ATR", formatNull(latest.ATR, 4)),
		row("ADX", formatNull(latest.ADX, 1)),
		row("+DI / -DI", formatNull(latest.PlusDI, 1)+" / "+formatNull(latest.MinusDI, 1)),
		row("MFI", formatNull(latest.MFI, 1)),
		row("RSI", formatNull(latest.RSI, 1)),
		row("Тренд", formatNull(latest.Trend, 2)),
	}, "\n")

	plan := res.Plan
	planRows := []string{
		row("Сигнал", FormatSignal(res.Signal)),
		row("Вход", FormatPrice(plan.Entry)),
		row("Take profit", FormatPrice(plan.TakeProfit)),
		row("Stop loss", FormatPrice(plan.StopLoss)),
		row("Поддержка", FormatPrice(plan.Support)),
		row("Сопротивление", FormatPrice(plan.Resistance)),
		row("Основа", plan.Basis),
	}

	sections := []string{
		title,
		section("ИНДИКАТОРЫ", indicators),
		section("ТОРГОВЫЙ ПЛАН", strings.Join(planRows, "\n")),
	}

	if markers := res.Markers(); len(markers) > 0 {
		sections = append(sections, section("ПОСЛЕДНИЕ СИГНАЛЫ", renderMarkers(markers, 5)))
	}
	if len(res.Pivots) > 0 {
		sections = append(sections, section("ФРАКТАЛЫ", renderPivots(res.Pivots, 6)))
	}

	footer := fmt.Sprintf("Свечей: %d  Сформирован: %s",
		len(res.Snapshots), res.GeneratedAt.Format("2006-01-02 15:04:05"))
	if !res.Sufficient {
		footer += lipgloss.NewStyle().Foreground(warningColor).
			Render(fmt.Sprintf("  Недостаточно истории: нужно %d свечей", res.Warmup))
	}
	sections = append(sections, footerStyle.Render(footer))

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// RenderSummary таблица результатов сканирования
func RenderSummary(results []*models.Result, failed map[string]error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-6s %-14s %14s %8s %7s %7s %14s %14s\n",
		"Символ", "ТФ", "Сигнал", "Цена", "Z", "ADX", "MFI", "TP", "SL")
	b.WriteString(strings.Repeat("-", 104) + "\n")

	for _, res := range results {
		sig := fmt.Sprintf("%-14s", res.Signal.String())
		fmt.Fprintf(&b, "%-12s %-6s %s %14s %8s %7s %7s %14s %14s\n",
			res.Symbol, res.Interval, signalStyle(res.Signal).Render(sig),
			FormatPrice(res.Latest.Close),
			formatNull(res.Latest.ZScore, 2),
			formatNull(res.Latest.ADX, 1),
			formatNull(res.Latest.MFI, 1),
			FormatPrice(res.Plan.TakeProfit),
			FormatPrice(res.Plan.StopLoss))
	}
	symbols := make([]string, 0, len(failed))
	for symbol := range failed {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		fmt.Fprintf(&b, "%-12s %s\n", symbol,
			lipgloss.NewStyle().Foreground(errorColor).Render("ОШИБКА: "+failed[symbol].Error()))
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("СКАНИРОВАНИЕ"),
		strings.TrimRight(b.String(), "\n"),
	))
}

// RenderHistory таблица сохраненных сигналов
func RenderHistory(symbol string, records []*models.SignalRecord) string {
	if len(records) == 0 {
		return footerStyle.Render(fmt.Sprintf("История сигналов %s пуста", symbol))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-19s %-6s %-14s %14s %8s %14s %14s\n",
		"Время", "ТФ", "Сигнал", "Цена", "Z", "TP", "SL")
	for _, rec := range records {
		sig := fmt.Sprintf("%-14s", rec.Signal.String())
		fmt.Fprintf(&b, "%-19s %-6s %s %14s %8s %14s %14s\n",
			rec.Timestamp.Format("2006-01-02 15:04"), rec.Interval,
			signalStyle(rec.Signal).Render(sig),
			FormatPrice(rec.Price),
			formatNull(rec.ZScore, 2),
			FormatPrice(rec.Plan.TakeProfit),
			FormatPrice(rec.Plan.StopLoss))
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("ИСТОРИЯ "+symbol),
		strings.TrimRight(b.String(), "\n"),
	))
}

// FormatSignal сигнал с цветом
func FormatSignal(sig models.Signal) string {
	return signalStyle(sig).Render(sig.String())
}

func signalStyle(sig models.Signal) lipgloss.Style {
	switch sig {
	case models.LongStrong:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case models.Long:
		return lipgloss.NewStyle().Foreground(successColor)
	case models.ShortStrong:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	case models.Short:
		return lipgloss.NewStyle().Foreground(errorColor)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}

// FormatPrice округляет цену по ее порядку: крупные до центов,
// дешевые монеты до 8 знаков
func FormatPrice(v float64) string {
	d := decimal.NewFromFloat(v)
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return d.StringFixed(2)
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return d.StringFixed(4)
	case abs.IsZero():
		return "0"
	default:
		return d.StringFixed(8)
	}
}

func formatNull(n models.NullFloat, places int32) string {
	if !n.Valid {
		return "n/a"
	}
	return decimal.NewFromFloat(n.Float64).StringFixed(places)
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func section(header, body string) string {
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(header), body))
}

func renderMarkers(markers []models.Marker, n int) string {
	if len(markers) > n {
		markers = markers[len(markers)-n:]
	}
	lines := make([]string, 0, len(markers))
	for _, m := range markers {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			m.Time.Format("2006-01-02 15:04"), FormatPrice(m.Price), FormatSignal(m.Signal)))
	}
	return strings.Join(lines, "\n")
}

func renderPivots(pivots []models.Pivot, n int) string {
	if len(pivots) > n {
		pivots = pivots[len(pivots)-n:]
	}
	lines := make([]string, 0, len(pivots))
	for _, p := range pivots {
		lines = append(lines, fmt.Sprintf("%s  %-10s %s",
			p.Time.Format("2006-01-02 15:04"), string(p.Kind), FormatPrice(p.Price)))
	}
	return strings.Join(lines, "\n")
}

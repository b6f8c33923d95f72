package exchange

import "strings"

// Псевдонимы индексов Yahoo
var yahooAliases = map[string]string{
	"SPX500": "^GSPC",
	"SPX":    "^GSPC",
	"SP500":  "^GSPC",
}

// NormalizeSymbol приводит пользовательский ввод к тикеру источника.
// Для Yahoo четырехбуквенный тикер без суффикса считается акцией IDX
// и получает суффикс .JK.
func NormalizeSymbol(source, raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return s
	}

	switch source {
	case "yahoo":
		if alias, ok := yahooAliases[s]; ok {
			return alias
		}
		if len(s) == 4 && isLetters(s) {
			return s + ".JK"
		}
	case "binance":
		s = strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
	}
	return s
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ResolveStoredSymbol ищет символ среди уже сохраненных тикеров.
// Хранилище держит свечи под тикером того источника, из которого они
// пришли, поэтому пробуются точное совпадение и формы Yahoo и Binance.
// Если ничего не найдено, возвращается символ в верхнем регистре.
func ResolveStoredSymbol(raw string, known []string) string {
	s := NormalizeSymbol("", raw)
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	for _, candidate := range []string{s, NormalizeSymbol("yahoo", s), NormalizeSymbol("binance", s)} {
		if _, ok := set[candidate]; ok {
			return candidate
		}
	}
	return s
}

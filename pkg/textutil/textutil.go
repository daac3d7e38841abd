// Package textutil holds the small pure text helpers shared by the command
// dispatcher and the outbound formatter: command token extraction, pt-BR
// currency/integer parsing and BRL formatting.
package textutil

import (
	"math"
	"strconv"
	"strings"
)

// ExtractCommand extracts a command token from a chat message: the text must
// start with '/', everything after the first whitespace is ignored and the
// token is lower-cased. Returns "" when the text is not command-shaped.
func ExtractCommand(text string) string {
	value := strings.TrimSpace(text)
	if !strings.HasPrefix(value, "/") {
		return ""
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(fields[0], "/"))
}

// ParseCurrency parses a localized currency amount. Both "," and "." are
// accepted as decimal separator; when both appear, "." is treated as the
// thousands separator ("R$ 1.234,56" -> 1234.56). Currency symbols and
// whitespace are stripped.
func ParseCurrency(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	value = strings.NewReplacer("R$", "", "r$", "", " ", "", "\t", "").Replace(value)
	switch {
	case strings.Contains(value, ",") && strings.Contains(value, "."):
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	case strings.Contains(value, ","):
		value = strings.Replace(value, ",", ".", 1)
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, value)
	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

// ParseInteger parses an integer out of free-form text, dropping anything
// that is not a digit or a sign ("2 unidades" -> 2).
func ParseInteger(raw string) (int, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0, false
	}
	num, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return num, true
}

// FormatBRL renders a value as pt-BR currency: two decimals, "." for
// thousands, "," for decimals, "R$ " prefix.
func FormatBRL(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	if value < 0 {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteByte(',')
	frac := cents % 100
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

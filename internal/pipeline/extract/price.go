package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents переводит десятичную цену в центы. Пустая строка даёт nil.
func Cents(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative price %q", value)
	}

	cents := d.Shift(2).Round(0).IntPart()
	return &cents, nil
}

// FormatCents форматирует центы как десятичную строку с двумя знаками.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

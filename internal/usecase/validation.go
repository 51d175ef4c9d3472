package usecase

import (
	"strings"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/digishop/internal/domain/errors"
)

// ParseAmount parses a user-entered USD amount rounded to cents.
// Both "2.50" and "2,50" are accepted; an optional leading "$" is ignored.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}
	amount = roundCents(amount)
	if !amount.IsPositive() {
		return decimal.Zero, domainErrors.ErrInvalidAmount
	}
	return amount, nil
}

func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func parseSwitch(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "да":
		return true, true
	case "0", "false", "no", "off", "нет":
		return false, true
	}
	return false, false
}

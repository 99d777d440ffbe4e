package currency

import (
	"errors"
	"strings"
)

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

var ErrInvalidCurrency = errors.New("invalid currency")

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency accepts ISO 4217 codes in any case; payment providers send
// lowercase.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(s) {
	case CurrencyEUR.String():
		return CurrencyEUR, nil
	case CurrencyUSD.String():
		return CurrencyUSD, nil
	case CurrencyGBP.String():
		return CurrencyGBP, nil
	default:
		return "", ErrInvalidCurrency
	}
}

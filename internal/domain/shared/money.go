package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Supported currencies
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
)

// DefaultCurrency is used when none is given
const DefaultCurrency = CurrencyEUR

var supportedCurrencies = map[string]bool{
	CurrencyEUR: true,
	CurrencyUSD: true,
	CurrencyGBP: true,
}

// NormalizeCurrency upper-cases a currency code, defaulting empty input to EUR,
// and rejects currencies outside the supported set.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if !supportedCurrencies[code] {
		return "", InvalidInput("unsupported currency " + code)
	}
	return code, nil
}

// RoundMoney rounds an amount to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

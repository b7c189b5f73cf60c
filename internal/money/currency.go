// Package money formats amounts in a currency and converts them between currencies
// using a rate table.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency formats amounts of one currency in one locale.
type Currency struct {
	Code   string
	Symbol string
	Known  bool // false when Code is not an ISO 4217 code

	digits      int
	symbolFirst bool
	printer     *message.Printer
}

// Nordic krona/krone symbols read better than the ISO code x/text falls back to.
var symbolOverrides = map[string]string{
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"ISK": "kr",
}

// Currencies not issued by a single country, or whose issuer's most likely
// language writes numbers in another script.
var homeLocaleOverrides = map[string]language.Tag{
	"EUR": language.German,
	"INR": language.MustParse("en-IN"),
}

// x/text does not expose CLDR symbol placement, so the currencies written
// symbol first are listed here.
var symbolFirst = map[string]bool{
	"USD": true, "GBP": true, "JPY": true, "CAD": true, "AUD": true,
	"MXN": true, "HKD": true, "SGD": true, "NZD": true, "ZAR": true,
}

// GetCurrency returns code formatted in its home locale.
func GetCurrency(code string) Currency {
	code = NormalizeCode(code)
	return GetCurrencyWithLocale(code, homeLocale(code))
}

// GetCurrencyWithLocale returns code formatted in tag. language.Und selects the
// currency's home locale.
func GetCurrencyWithLocale(code string, tag language.Tag) Currency {
	code = NormalizeCode(code)
	if tag == language.Und {
		tag = homeLocale(code)
	}

	c := Currency{
		Code:        code,
		Symbol:      code,
		digits:      2,
		symbolFirst: symbolFirst[code],
		printer:     message.NewPrinter(tag),
	}
	if unit, err := currency.ParseISO(code); err == nil {
		c.Known = true
		c.digits, _ = currency.Standard.Rounding(unit)
		c.Symbol = c.printer.Sprint(currency.NarrowSymbol(unit))
	}
	if sym, ok := symbolOverrides[code]; ok {
		c.Symbol = sym
	}
	return c
}

// homeLocale returns the locale a currency is usually written in. An ISO 4217
// code starts with the issuing country; that country's most likely language is
// used. Unknown and supranational (X..) codes get English.
func homeLocale(code string) language.Tag {
	if tag, ok := homeLocaleOverrides[code]; ok {
		return tag
	}
	if _, err := currency.ParseISO(code); err != nil || strings.HasPrefix(code, "X") {
		return language.English
	}
	region, err := language.ParseRegion(code[:2])
	if err != nil {
		return language.English
	}
	und, err := language.Compose(region)
	if err != nil {
		return language.English
	}
	base, conf := und.Base()
	if conf == language.No {
		return language.English
	}
	tag, err := language.Compose(base, region)
	if err != nil {
		return language.English
	}
	return tag
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Format formats amount rounded to the currency's minor units, with its symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	n := c.formatNumber(amount.Round(int32(c.digits)))
	if c.symbolFirst {
		return c.Symbol + n
	}
	return n + " " + c.Symbol
}

// formatNumber formats the whole part as an integer and the fraction on its own,
// so no digit is lost to float64 precision.
func (c Currency) formatNumber(amount decimal.Decimal) string {
	abs := amount.Abs()
	whole := abs.Truncate(0)
	n := c.printer.Sprint(number.Decimal(whole.IntPart()))
	if c.digits > 0 {
		frac := c.printer.Sprint(number.Decimal(abs.Sub(whole).InexactFloat64(),
			number.MinFractionDigits(c.digits), number.MaxFractionDigits(c.digits)))
		n += strings.TrimPrefix(frac, c.printer.Sprint(number.Decimal(0)))
	}
	if amount.IsNegative() {
		n = strings.TrimSuffix(c.printer.Sprint(number.Decimal(-1)), c.printer.Sprint(number.Decimal(1))) + n
	}
	return n
}

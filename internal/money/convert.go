package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Table is a set of exchange rates quoted against Base: Rates["USD"] is the number
// of US dollars one unit of Base buys.
type Table struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// NewTable builds a rate table, normalizing every currency code.
func NewTable(base string, rates map[string]decimal.Decimal) Table {
	t := Table{Base: NormalizeCode(base), Rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		t.Rates[NormalizeCode(code)] = rate
	}
	return t
}

// Rate returns the rate for code. The base currency always has rate 1.
func (t Table) Rate(code string) (decimal.Decimal, bool) {
	code = NormalizeCode(code)
	if code == t.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// ConversionStatus tells whether an amount was actually converted.
type ConversionStatus int

const (
	Converted ConversionStatus = iota
	// Unconverted means no usable rate existed and the original amount was kept.
	Unconverted
)

func (s ConversionStatus) String() string {
	if s == Unconverted {
		return "unconverted_fallback"
	}
	return "converted"
}

func (s ConversionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConversionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "converted":
		*s = Converted
	case "unconverted_fallback":
		*s = Unconverted
	default:
		return fmt.Errorf("unknown conversion status %q", text)
	}
	return nil
}

// Conversion is the result of converting an amount into a table's base currency.
// When Status is Unconverted, Amount equals Original and is still in From.
type Conversion struct {
	Amount   decimal.Decimal  `json:"amount"`
	Original decimal.Decimal  `json:"original"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	Status   ConversionStatus `json:"status"`
}

// IsFallback reports whether the original amount was kept for lack of a rate.
func (c Conversion) IsFallback() bool {
	return c.Status == Unconverted
}

// Convert expresses amount, given in from, in the table's base currency by dividing
// it by the rate of from. A missing or zero rate yields an Unconverted result.
func (t Table) Convert(amount decimal.Decimal, from string) Conversion {
	from = NormalizeCode(from)
	c := Conversion{Amount: amount, Original: amount, From: from, To: t.Base, Status: Unconverted}
	rate, ok := t.Rate(from)
	if !ok {
		return c
	}
	if from != t.Base {
		c.Amount = amount.Div(rate)
	}
	c.Status = Converted
	return c
}

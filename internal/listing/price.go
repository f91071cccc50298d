package listing

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	LocaleFR = "fr"
	LocaleEN = "en"
)

// Price is either a fixed amount in minor units or "on quote", never both.
type Price struct {
	Amount  *int64  `json:"amount,omitempty"`
	Display *string `json:"display,omitempty"`
	OnQuote bool    `json:"on_quote"`
}

func (p Price) IsSet() bool {
	return p.OnQuote || (p.Amount != nil && *p.Amount > 0)
}

// FixedPrice derives the display string from the amount so the two never drift.
func FixedPrice(amountMinor int64) Price {
	display := FormatPrice(amountMinor, LocaleFR)
	return Price{Amount: &amountMinor, Display: &display}
}

func OnQuotePrice() Price {
	return Price{OnQuote: true}
}

// Fields returns the persisted columns for this price choice. Unused columns are
// nulled so switching between the two choices clears the other one.
func (p Price) Fields() Fields {
	if p.OnQuote {
		return Fields{
			"price_amount":   nil,
			"price_display":  nil,
			"price_on_quote": true,
		}
	}
	return Fields{
		"price_amount":   *p.Amount,
		"price_display":  *p.Display,
		"price_on_quote": false,
	}
}

// FormatPrice renders minor units of euros, e.g. 150000 -> "1 500,00 €" (fr)
// or "€1,500.00" (en).
func FormatPrice(amountMinor int64, locale string) string {
	amount := decimal.New(amountMinor, -2)
	fixed := amount.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}

	if locale == LocaleEN {
		return sign + "€" + groupThousands(intPart, ",") + "." + fracPart
	}
	return sign + groupThousands(intPart, " ") + "," + fracPart + " €"
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

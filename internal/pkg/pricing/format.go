package pricing

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is the organization currency when none is configured.
const DefaultCurrency = "TRY"

var trPrinter = message.NewPrinter(language.Turkish)

var currencySymbols = map[string]string{
	"TRY": "₺",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// NormalizeCurrency maps the internal "TL" code to ISO "TRY" and upper-cases
// valid ISO codes. Unknown codes pass through unchanged.
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency
	}
	if strings.EqualFold(code, "TL") {
		return "TRY"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return unit.String()
}

// FormatPackagePrice renders amount with Turkish grouping and two decimals,
// prefixed by the currency symbol, e.g. "₺1.234,50".
func FormatPackagePrice(amount float64, currencyCode string) string {
	code := NormalizeCurrency(currencyCode)
	number := trPrinter.Sprintf("%.2f", amount)
	if sym, ok := currencySymbols[code]; ok {
		return sym + number
	}
	return code + " " + number
}

// FormatDiscountPercentage renders a percentage the Turkish way, e.g. "%15".
func FormatDiscountPercentage(percentage float64) string {
	return fmt.Sprintf("%%%d", int(math.Round(percentage)))
}

// GetPackageDisplayName prefers the English name for English locales.
func GetPackageDisplayName(pkg Package, locale string) string {
	if isEnglish(locale) && pkg.NameEn != nil && *pkg.NameEn != "" {
		return *pkg.NameEn
	}
	return pkg.Name
}

// GetSavingsDisplay describes the saving of a package against the nominal
// credit rate. Empty when there is nothing saved.
func GetSavingsDisplay(p *PackagePricing, currencyCode, locale string) string {
	if p == nil || p.DiscountAmount <= 0 {
		return ""
	}
	amount := FormatPackagePrice(p.DiscountAmount, currencyCode)
	pct := FormatDiscountPercentage(p.DiscountPercentage)
	if isEnglish(locale) {
		return fmt.Sprintf("Save %s (%s)", amount, pct)
	}
	return fmt.Sprintf("%s tasarruf (%s)", amount, pct)
}

var statusLabels = map[RedemptionStatus][2]string{
	StatusActive:    {"Aktif", "Active"},
	StatusExpired:   {"Süresi Doldu", "Expired"},
	StatusCancelled: {"İptal Edildi", "Cancelled"},
	StatusUsed:      {"Kullanıldı", "Used"},
}

// GetRedemptionStatusDisplay returns the status label, Turkish by default.
func GetRedemptionStatusDisplay(status RedemptionStatus, locale string) string {
	labels, ok := statusLabels[status]
	if !ok {
		return string(status)
	}
	if isEnglish(locale) {
		return labels[1]
	}
	return labels[0]
}

func isEnglish(locale string) bool {
	if locale == "" {
		return false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

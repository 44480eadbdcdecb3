package plans

import (
	"strings"

	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
)

// OtherCountry is the catch-all price row for markets without their own price.
const OtherCountry = "Other"

const defaultSymbol = "$"

var currencySymbols = map[string]string{
	"NGN": "₦",
	"GHS": "GH₵",
	"KES": "KSh",
	"ZAR": "R",
	"UGX": "USh",
	"TZS": "TSh",
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

var countryCurrencies = map[string]string{
	"nigeria":        "NGN",
	"ghana":          "GHS",
	"kenya":          "KES",
	"south africa":   "ZAR",
	"uganda":         "UGX",
	"tanzania":       "TZS",
	"united states":  "USD",
	"united kingdom": "GBP",
}

// ResolvePrice picks the price row for a plan duration and viewer country.
// Order: exact country, home country, USD or "Other", first row for the
// duration. ok is false when nothing is priced for that duration.
func ResolvePrice(prices []models.PlanPrice, durationDays int, country, homeCountry string) (models.PlanPrice, bool) {
	candidates := make([]models.PlanPrice, 0, len(prices))
	for _, p := range prices {
		if p.DurationDays == durationDays {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return models.PlanPrice{}, false
	}

	if match, ok := findCountry(candidates, country); ok {
		return match, true
	}
	if match, ok := findCountry(candidates, homeCountry); ok {
		return match, true
	}
	for _, p := range candidates {
		if strings.EqualFold(p.Currency, "USD") || strings.EqualFold(p.Country, OtherCountry) {
			return p, true
		}
	}
	return candidates[0], true
}

func findCountry(prices []models.PlanPrice, country string) (models.PlanPrice, bool) {
	country = strings.TrimSpace(country)
	if country == "" {
		return models.PlanPrice{}, false
	}
	for _, p := range prices {
		if strings.EqualFold(strings.TrimSpace(p.Country), country) {
			return p, true
		}
	}
	return models.PlanPrice{}, false
}

// CurrencyCode returns the explicit currency of a price, falling back to the
// currency of its country and then of the viewer's country.
func CurrencyCode(price models.PlanPrice, userCountry string) string {
	if code := strings.ToUpper(strings.TrimSpace(price.Currency)); code != "" {
		return code
	}
	if code, ok := countryCurrencies[strings.ToLower(strings.TrimSpace(price.Country))]; ok {
		return code
	}
	if code, ok := countryCurrencies[strings.ToLower(strings.TrimSpace(userCountry))]; ok {
		return code
	}
	return "USD"
}

// CurrencySymbol resolves the display symbol for a price.
func CurrencySymbol(price models.PlanPrice, userCountry string) string {
	code := CurrencyCode(price, userCountry)
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	if strings.TrimSpace(price.Currency) != "" {
		return code
	}
	return defaultSymbol
}

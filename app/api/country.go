package api

import "strings"

const defaultCountry = "GH"

var currencyCountries = map[string]string{
	"GHS": "GH",
	"NGN": "NG",
	"KES": "KE",
	"ZAR": "ZA",
	"UGX": "UG",
	"TZS": "TZ",
	"RWF": "RW",
	"XOF": "CI",
	"XAF": "CM",
	"EGP": "EG",
	"USD": "US",
	"GBP": "GB",
	"EUR": "DE",
}

func ResolveCountry(explicit, currency string) string {
	if c := strings.ToUpper(strings.TrimSpace(explicit)); c != "" {
		return c
	}
	if c, ok := currencyCountries[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return c
	}
	return defaultCountry
}

package format

import (
	"fmt"
	"strings"
)

// zeroDecimal lists the currencies whose smallest unit is the major unit.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

// FormatAmount renders an amount in the smallest currency unit as a
// human-readable string such as "100.00 EUR".
//
// This function is PURE.
func FormatAmount(amount int64, currency string) string {
	code := strings.ToLower(strings.TrimSpace(currency))
	upper := strings.ToUpper(code)
	if upper == "" {
		upper = "-"
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	if zeroDecimal[code] {
		return fmt.Sprintf("%s%d %s", sign, amount, upper)
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, upper)
}

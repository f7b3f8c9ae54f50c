package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPhone renders an 11 digit number as +7 (XXX) XXX-XX-XX and returns
// anything else unchanged.
func FormatPhone(value string) string {
	if len(value) != 11 {
		return value
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return value
		}
	}
	return fmt.Sprintf("+7 (%s) %s-%s-%s", value[1:4], value[4:7], value[7:9], value[9:])
}

// FormatPrice formats an hourly price with a space thousands separator and
// two decimals, e.g. 1500 -> "1 500.00".
func FormatPrice(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	formatted := fmt.Sprintf("%.2f", math.Round(amount*100)/100)

	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	return sign + strings.Join(groups, " ") + "." + decimalPart
}

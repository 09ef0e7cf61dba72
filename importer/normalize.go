package importer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
	// intRegexp captures the first integer in a scraped fragment
	intRegexp = regexp.MustCompile(`\d+`)
)

// parsePrice extracts a numeric price from scraped text.
// Examples:
//
//	"150,000 €"    → 150000
//	"€ 1.250"      → 1.250 (decimal point kept as-is)
//	"Çmimi: 85000" → 85000
func parsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return price
}

// parseCount extracts a small integer such as a bedroom or bathroom count.
func parseCount(raw string) int {
	match := intRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

package ingest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a price as typed in manifests and marketplace reports,
// such as "$ 203,90", "1.234,56", "1,234.56" or "CA$12". When both a comma
// and a period appear, the last one is the decimal separator. A lone comma
// followed by one or two digits is a decimal comma. Input without any
// digits is zero.
func ParsePrice(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if strings.Trim(clean, ",.-") == "" {
		return decimal.Zero, nil
	}

	comma := strings.LastIndex(clean, ",")
	period := strings.LastIndex(clean, ".")
	switch {
	case comma >= 0 && period >= 0:
		if comma > period {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case comma >= 0:
		if strings.Count(clean, ",") == 1 && len(clean)-comma-1 <= 2 {
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	return d, nil
}

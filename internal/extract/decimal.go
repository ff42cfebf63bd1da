package extract

import (
	"strings"
)

// NormalizeDecimal rewrites a Brazilian ("1.234,56") or US ("1,234.56") amount as
// "1234.56". A single separator followed by exactly three digits is read as a
// thousands separator unless the leading group is "0". Fractions are rounded
// half up to two places. Inputs that are not a well-formed amount are returned unchanged.
func NormalizeDecimal(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return s
	}
	sign := ""
	if v[0] == '-' {
		sign, v = "-", v[1:]
	}
	if v == "" || !isDigit(v[0]) || !isDigit(v[len(v)-1]) {
		return s
	}
	for i := 0; i < len(v); i++ {
		if c := v[i]; !isDigit(c) && c != '.' && c != ',' {
			return s
		}
	}

	dots, commas := strings.Count(v, "."), strings.Count(v, ",")
	var intPart, frac string
	var thousands byte
	switch {
	case dots == 0 && commas == 0:
		intPart = v
	case dots > 0 && commas > 0:
		dec := v[strings.LastIndexAny(v, ".,")]
		if strings.Count(v, string(dec)) != 1 {
			return s
		}
		i := strings.IndexByte(v, dec)
		intPart, frac = v[:i], v[i+1:]
		thousands = ','
		if dec == ',' {
			thousands = '.'
		}
	default:
		sep := byte('.')
		if commas > 0 {
			sep = ','
		}
		parts := strings.Split(v, string(sep))
		switch {
		case len(parts) == 2 && (len(parts[1]) != 3 || parts[0] == "0"):
			intPart, frac = parts[0], parts[1]
		default:
			intPart, thousands = v, sep
		}
	}

	if thousands != 0 {
		var ok bool
		if intPart, ok = joinGroups(intPart, thousands); !ok {
			return s
		}
	}
	if strings.ContainsAny(intPart, ".,") || strings.ContainsAny(frac, ".,") {
		return s
	}
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	case 2:
	default:
		intPart, frac = roundCents(intPart, frac)
	}
	return sign + intPart + "." + frac
}

// roundCents rounds intPart.frac half up to two fractional digits.
func roundCents(intPart, frac string) (string, string) {
	digits := []byte(intPart + frac[:2])
	if frac[2] >= '5' {
		i := len(digits) - 1
		for ; i >= 0 && digits[i] == '9'; i-- {
			digits[i] = '0'
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		} else {
			digits[i]++
		}
	}
	n := len(digits) - 2
	return string(digits[:n]), string(digits[n:])
}

// joinGroups validates "1.234.567" style grouping and drops the separators.
func joinGroups(v string, sep byte) (string, bool) {
	groups := strings.Split(v, string(sep))
	if len(groups[0]) == 0 || len(groups) > 1 && (len(groups[0]) > 3 || groups[0][0] == '0') {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

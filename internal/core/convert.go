package core

// convert.go provides the cell normalizers and combiners plans refer to by name.
//
// These functions handle the messy reality of user-provided CSV data:
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives written as (123.45)
//   - Excel formula prefixes (="value")
//   - US state names instead of codes
//
// Normalizers and combiners are total: a value they cannot interpret is
// passed through (or yields ""), never an error, so a mapping built from them
// fails only on structural problems.

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Normalizer rewrites a single cell.
type Normalizer func(string) string

// Combiner merges two cells of the same row.
type Combiner func(a, b string) string

var normalizers = map[string]Normalizer{
	"trim":     strings.TrimSpace,
	"upper":    strings.ToUpper,
	"lower":    strings.ToLower,
	"clean":    CleanCell,
	"us_state": NormalizeUsState,
	"numeric":  NormalizeNumeric,
}

// LookupNormalizer returns the normalizer registered under name.
func LookupNormalizer(name string) (Normalizer, bool) {
	n, ok := normalizers[strings.ToLower(name)]
	return n, ok
}

// NormalizerNames returns the registered normalizer names, sorted.
func NormalizerNames() []string {
	return sortedKeys(normalizers)
}

// CombinerNames returns the registered combiner names, sorted.
func CombinerNames() []string {
	return []string{"coalesce", "concat", "sum"}
}

// LookupCombiner builds the combiner registered under name. separator is
// only used by concat and defaults to a single space.
func LookupCombiner(name string, separator *string) (Combiner, error) {
	switch strings.ToLower(name) {
	case "", "concat":
		sep := " "
		if separator != nil {
			sep = *separator
		}
		return concatWith(sep), nil
	case "coalesce":
		return Coalesce, nil
	case "sum":
		return SumNumeric, nil
	default:
		return nil, fmt.Errorf("%w: unknown combiner %q (known: %s)",
			ErrInvalidPlan, name, strings.Join(CombinerNames(), ", "))
	}
}

// concatWith joins both cells with sep, dropping sep when either side is empty.
func concatWith(sep string) Combiner {
	return func(a, b string) string {
		switch {
		case a == "":
			return b
		case b == "":
			return a
		default:
			return a + sep + b
		}
	}
}

// Coalesce returns the first non-blank cell.
func Coalesce(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// SumNumeric adds two numeric cells. A blank or unparseable side counts as
// absent; if both are absent the result is "".
func SumNumeric(a, b string) string {
	x, okA := parseDecimal(a)
	y, okB := parseDecimal(b)
	switch {
	case okA && okB:
		return x.Add(y).String()
	case okA:
		return x.String()
	case okB:
		return y.String()
	default:
		return ""
	}
}

// NormalizeNumeric rewrites a number in canonical decimal form.
// Values that are not numbers are returned unchanged.
func NormalizeNumeric(s string) string {
	d, ok := parseDecimal(s)
	if !ok {
		return s
	}
	return d.String()
}

// parseDecimal parses a number, tolerating currency symbols, thousands
// separators and accounting format (parentheses for negative).
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

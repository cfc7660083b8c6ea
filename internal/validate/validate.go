package validate

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	reUsername = regexp.MustCompile(`^[\p{L}\p{N}_.-]{2,20}$`)
	rePhone    = regexp.MustCompile(`^\+?[0-9]{6,20}$`)
	reExportK  = regexp.MustCompile(`^[a-z_]{1,32}$`)
)

// MaxQty bounds a single cart line.
const MaxQty = 999

func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUsername.MatchString(s)
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}

// Password enforces a length window and mixed character classes.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

// Qty accepts 1..MaxQty.
func Qty(n int) bool { return n >= 1 && n <= MaxQty }

// ID parses a positive numeric resource id (product, order, address).
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Text trims s and checks it is non-empty and at most max runes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > max {
		return "", false
	}
	return s, true
}

// Amount accepts positive money values with at most two decimals.
func Amount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

func ExportKey(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reExportK.MatchString(s)
}

package deductions

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	perrors "salary-deductions/pkg/errors"
)

// ParseMode selects how unparseable salary text is handled.
type ParseMode int

const (
	// ParseStrict rejects anything that is not a non-negative number.
	ParseStrict ParseMode = iota
	// ParseLenient reads the leading number and drops whatever follows it
	// ("50000abc" is 50000); text with no leading number becomes zero.
	// Negative numbers are still rejected.
	ParseLenient
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)`)

// ParseSalary reads a monthly salary such as "50000", "50,000.00" or "RD$ 50,000".
// The second return value reports whether lenient mode had to drop or
// replace part of the input.
func ParseSalary(raw string, mode ParseMode) (decimal.Decimal, bool, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "RD$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	coerced := false
	if mode == ParseLenient {
		prefix := leadingNumber.FindString(s)
		if prefix == "" {
			return decimal.Zero, true, nil
		}
		coerced = prefix != s
		s = prefix
	}

	if s == "" {
		return decimal.Zero, false, perrors.NewInvalidInputError("salary", "salary is required")
	}

	salary, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, perrors.NewInvalidInputError("salary", "not a number: %q", raw)
	}

	if salary.IsNegative() {
		return decimal.Zero, false, perrors.NewInvalidInputError("salary", "must not be negative: %s", salary)
	}
	return salary, coerced, nil
}

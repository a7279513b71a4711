// Package deductions computes Dominican Republic payroll deductions:
// AFP (pension fund), ARS (health insurance) and ISR (income tax).
package deductions

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	perrors "salary-deductions/pkg/errors"
)

// Rule set names
const (
	RuleSetUncapped = "uncapped"
	RuleSetCapped   = "capped"

	DefaultRuleSet = RuleSetUncapped
)

// Ceiling multiples of the minimum salary used by the capped rule set.
const (
	PensionCeilingMultiple   = 20
	InsuranceCeilingMultiple = 10
)

var monthsPerYear = decimal.NewFromInt(12)

// Bracket is one progressive ISR band. Income above Threshold is taxed at
// Rate, on top of BaseAmount.
type Bracket struct {
	Threshold  decimal.Decimal `json:"threshold"`
	Rate       decimal.Decimal `json:"rate"`
	BaseAmount decimal.Decimal `json:"base_amount"`
}

// RuleTable holds the statutory constants for one rule revision.
// Brackets are sorted by ascending threshold. A ceiling that is not Valid
// means the deduction is uncapped.
type RuleTable struct {
	Name             string              `json:"name"`
	EffectiveDate    string              `json:"effective_date"`
	MinimumSalary    decimal.Decimal     `json:"minimum_salary"`
	PensionRate      decimal.Decimal     `json:"pension_rate"`
	InsuranceRate    decimal.Decimal     `json:"insurance_rate"`
	PensionCeiling   decimal.NullDecimal `json:"pension_ceiling"`
	InsuranceCeiling decimal.NullDecimal `json:"insurance_ceiling"`
	Brackets         []Bracket           `json:"brackets"`
}

// DefaultRules returns the latest revision: rates applied without ceilings.
func DefaultRules() RuleTable {
	return RuleTable{
		Name:          RuleSetUncapped,
		EffectiveDate: "2018-02-23",
		MinimumSalary: decimal.RequireFromString("9411.60"),
		PensionRate:   decimal.RequireFromString("0.0287"),
		InsuranceRate: decimal.RequireFromString("0.0304"),
		Brackets:      isrBrackets(),
	}
}

// CappedRules returns the earlier revision in which AFP is capped at 20 and
// ARS at 10 minimum salaries.
func CappedRules() RuleTable {
	rules := DefaultRules()
	rules.Name = RuleSetCapped
	rules.PensionCeiling = decimal.NewNullDecimal(
		rules.CeilingFor(rules.PensionRate, PensionCeilingMultiple))
	rules.InsuranceCeiling = decimal.NewNullDecimal(
		rules.CeilingFor(rules.InsuranceRate, InsuranceCeilingMultiple))
	return rules
}

func isrBrackets() []Bracket {
	return []Bracket{
		{
			Threshold:  decimal.RequireFromString("416220.00"),
			Rate:       decimal.RequireFromString("0.15"),
			BaseAmount: decimal.Zero,
		},
		{
			Threshold:  decimal.RequireFromString("624329.00"),
			Rate:       decimal.RequireFromString("0.20"),
			BaseAmount: decimal.RequireFromString("31216.00"),
		},
		{
			Threshold:  decimal.RequireFromString("867123.00"),
			Rate:       decimal.RequireFromString("0.25"),
			BaseAmount: decimal.RequireFromString("79776.00"),
		},
	}
}

// RuleSetNames lists the available presets.
func RuleSetNames() []string {
	return []string{RuleSetUncapped, RuleSetCapped}
}

// Lookup returns the preset with the given name. An empty name selects the default.
func Lookup(name string) (RuleTable, error) {
	switch name {
	case "", RuleSetUncapped:
		return DefaultRules(), nil
	case RuleSetCapped:
		return CappedRules(), nil
	default:
		return RuleTable{}, perrors.NewInvalidRulesError("rules",
			"unknown rule set %q (available: %v)", name, RuleSetNames())
	}
}

// CeilingFor returns rate x multiple x minimum salary.
func (r RuleTable) CeilingFor(rate decimal.Decimal, multiple int64) decimal.Decimal {
	return r.MinimumSalary.Mul(decimal.NewFromInt(multiple)).Mul(rate)
}

// Validate checks the table invariants.
func (r RuleTable) Validate() error {
	if r.MinimumSalary.IsNegative() {
		return perrors.NewInvalidRulesError("minimum_salary", "must not be negative")
	}
	if err := validateRate("pension_rate", r.PensionRate); err != nil {
		return err
	}
	if err := validateRate("insurance_rate", r.InsuranceRate); err != nil {
		return err
	}
	if r.PensionCeiling.Valid && r.PensionCeiling.Decimal.IsNegative() {
		return perrors.NewInvalidRulesError("pension_ceiling", "must not be negative")
	}
	if r.InsuranceCeiling.Valid && r.InsuranceCeiling.Decimal.IsNegative() {
		return perrors.NewInvalidRulesError("insurance_ceiling", "must not be negative")
	}
	if len(r.Brackets) == 0 {
		return perrors.NewInvalidRulesError("brackets", "at least one bracket is required")
	}
	for i, b := range r.Brackets {
		field := fmt.Sprintf("brackets[%d]", i)
		if err := validateRate(field+".rate", b.Rate); err != nil {
			return err
		}
		if b.BaseAmount.IsNegative() {
			return perrors.NewInvalidRulesError(field+".base_amount", "must not be negative")
		}
		if i > 0 && !b.Threshold.GreaterThan(r.Brackets[i-1].Threshold) {
			return perrors.NewInvalidRulesError(field+".threshold",
				"thresholds must be strictly increasing (%s <= %s)",
				b.Threshold, r.Brackets[i-1].Threshold)
		}
	}
	return nil
}

func validateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return perrors.NewInvalidRulesError(field, "rate %s must be in [0, 1)", rate)
	}
	return nil
}

// AnnualTax returns the ISR owed on an annual taxable income together with
// the 1-based bracket that applied (0 when exempt). Brackets are matched from
// the highest threshold down with a strict comparison, so income exactly at a
// threshold stays in the lower band.
func (r RuleTable) AnnualTax(annual decimal.Decimal) (decimal.Decimal, int) {
	brackets := r.Brackets
	if !sort.SliceIsSorted(brackets, func(i, j int) bool {
		return brackets[i].Threshold.LessThan(brackets[j].Threshold)
	}) {
		brackets = append([]Bracket(nil), brackets...)
		sort.Slice(brackets, func(i, j int) bool {
			return brackets[i].Threshold.LessThan(brackets[j].Threshold)
		})
	}

	for i := len(brackets) - 1; i >= 0; i-- {
		b := brackets[i]
		if annual.GreaterThan(b.Threshold) {
			return b.BaseAmount.Add(annual.Sub(b.Threshold).Mul(b.Rate)), i + 1
		}
	}
	return decimal.Zero, 0
}

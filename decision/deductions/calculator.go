package deductions

import "github.com/shopspring/decimal"

// Result holds the monthly deductions for one salary.
type Result struct {
	RuleSet string `json:"rule_set"`

	Salary    decimal.Decimal `json:"salary"`
	Pension   decimal.Decimal `json:"pension"`
	Insurance decimal.Decimal `json:"insurance"`
	IncomeTax decimal.Decimal `json:"income_tax"`
	Total     decimal.Decimal `json:"total"`
	Net       decimal.Decimal `json:"net"`

	// AnnualTaxable is the ISR base: salary net of AFP and ARS, times 12.
	AnnualTaxable decimal.Decimal `json:"annual_taxable"`
	// Bracket is the 1-based ISR bracket applied, 0 when exempt.
	Bracket int `json:"bracket"`
}

// Compute applies rules to a non-negative monthly salary. It has no side
// effects and never fails; input validation belongs to the caller.
func Compute(salary decimal.Decimal, rules RuleTable) Result {
	pension := capAt(salary.Mul(rules.PensionRate), rules.PensionCeiling)
	insurance := capAt(salary.Mul(rules.InsuranceRate), rules.InsuranceCeiling)

	annual := salary.Sub(pension).Sub(insurance).Mul(monthsPerYear)
	annualTax, bracket := rules.AnnualTax(annual)
	incomeTax := annualTax.Div(monthsPerYear)

	total := pension.Add(insurance).Add(incomeTax)

	return Result{
		RuleSet:       rules.Name,
		Salary:        salary,
		Pension:       pension,
		Insurance:     insurance,
		IncomeTax:     incomeTax,
		Total:         total,
		Net:           salary.Sub(total),
		AnnualTaxable: annual,
		Bracket:       bracket,
	}
}

func capAt(amount decimal.Decimal, ceiling decimal.NullDecimal) decimal.Decimal {
	if ceiling.Valid && amount.GreaterThan(ceiling.Decimal) {
		return ceiling.Decimal
	}
	return amount
}

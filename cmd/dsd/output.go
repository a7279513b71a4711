package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"salary-deductions/decision/deductions"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func validFormat(format string) bool {
	switch format {
	case formatText, formatJSON, formatMarkdown:
		return true
	}
	return false
}

// JSONOutput is the --format json document.
type JSONOutput struct {
	Rules         string `json:"rules"`
	Salary        string `json:"salary"`
	Pension       string `json:"pension"`
	Insurance     string `json:"insurance"`
	IncomeTax     string `json:"income_tax"`
	Total         string `json:"total"`
	Net           string `json:"net"`
	AnnualTaxable string `json:"annual_taxable"`
	Bracket       int    `json:"bracket"`
}

func writeResult(w io.Writer, format string, result *deductions.Result) error {
	switch format {
	case formatJSON:
		return outputJSON(w, result)
	case formatMarkdown:
		return outputMarkdown(w, result)
	default:
		return outputText(w, result)
	}
}

func outputText(w io.Writer, result *deductions.Result) error {
	_, err := fmt.Fprintf(w,
		"Descuento AFP: %s\nDescuento ARS: %s\nDescuento ISR: %s\nTotal Descuentos: %s\nSueldo neto: %s\n",
		result.Pension.StringFixed(2),
		result.Insurance.StringFixed(2),
		result.IncomeTax.StringFixed(2),
		result.Total.StringFixed(2),
		result.Net.StringFixed(2),
	)
	return err
}

func outputJSON(w io.Writer, result *deductions.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONOutput{
		Rules:         result.RuleSet,
		Salary:        result.Salary.StringFixed(2),
		Pension:       result.Pension.StringFixed(2),
		Insurance:     result.Insurance.StringFixed(2),
		IncomeTax:     result.IncomeTax.StringFixed(2),
		Total:         result.Total.StringFixed(2),
		Net:           result.Net.StringFixed(2),
		AnnualTaxable: result.AnnualTaxable.StringFixed(2),
		Bracket:       result.Bracket,
	})
}

func outputMarkdown(w io.Writer, result *deductions.Result) error {
	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Salario mensual", result.Salary},
		{"Descuento AFP", result.Pension},
		{"Descuento ARS", result.Insurance},
		{"Descuento ISR", result.IncomeTax},
		{"**Total Descuentos**", result.Total},
		{"**Sueldo neto**", result.Net},
	}

	if _, err := fmt.Fprintf(w, "| Concepto | RD$ |\n|----------|-----|\n"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "| %s | %s |\n", row.label, row.amount.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func writeRules(w io.Writer, rules deductions.RuleTable) error {
	lines := []string{
		fmt.Sprintf("Rule set:        %s (effective %s)", rules.Name, rules.EffectiveDate),
		fmt.Sprintf("Minimum salary:  %s", rules.MinimumSalary.StringFixed(2)),
		fmt.Sprintf("AFP:             %s%% %s", percent(rules.PensionRate), ceiling(rules.PensionCeiling)),
		fmt.Sprintf("ARS:             %s%% %s", percent(rules.InsuranceRate), ceiling(rules.InsuranceCeiling)),
		"ISR (annual):",
		fmt.Sprintf("  up to %s: exempt", rules.Brackets[0].Threshold.StringFixed(2)),
	}
	for _, b := range rules.Brackets {
		lines = append(lines, fmt.Sprintf("  over %s: %s + %s%% of the excess",
			b.Threshold.StringFixed(2), b.BaseAmount.StringFixed(2), percent(b.Rate)))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(2)
}

func ceiling(c decimal.NullDecimal) string {
	if !c.Valid {
		return "(uncapped)"
	}
	return "(capped at " + c.Decimal.StringFixed(2) + ")"
}

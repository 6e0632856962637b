// internal/engine/calculator.go
package engine

import (
	"math"

	apperrors "loanwise-engine/internal/common/errors"
)

// MonthlyInstallment computes the fixed monthly installment for a loan
// using the standard amortization formula:
//
//	r = annualRate / 12 / 100
//	emi = P * r * (1+r)^N / ((1+r)^N - 1)
//
// The result is truncated (not rounded) to an integer currency unit for
// display consistency. A zero rate degenerates to floor(P / N).
func MonthlyInstallment(principal float64, annualRate float64, tenureMonths int) (int64, error) {
	if principal <= 0 {
		return 0, apperrors.NewValidationError("principal must be positive")
	}
	if tenureMonths <= 0 {
		return 0, apperrors.NewValidationError("tenure must be a positive number of months")
	}
	if annualRate < 0 {
		return 0, apperrors.NewValidationError("interest rate must be non-negative")
	}

	monthlyRate := annualRate / 12 / 100
	if monthlyRate == 0 {
		return int64(math.Floor(principal / float64(tenureMonths))), nil
	}

	factor := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := principal * monthlyRate * factor / (factor - 1)
	return int64(math.Floor(emi)), nil
}

// TotalPayable is the full repayment amount over the tenure.
func TotalPayable(installment int64, tenureMonths int) int64 {
	return installment * int64(tenureMonths)
}

// ComputeFOIR returns the fixed-obligation-to-income ratio as a percent,
// always derived from the current installment and current declared
// income, never from stale values.
func ComputeFOIR(installment int64, monthlyIncome float64) (float64, error) {
	if monthlyIncome <= 0 {
		return 0, apperrors.NewValidationError("monthly income must be positive")
	}
	return float64(installment) / monthlyIncome * 100, nil
}

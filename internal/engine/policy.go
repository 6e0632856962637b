// internal/engine/policy.go
package engine

import (
	"loanwise-engine/internal/models"
)

// ScoreSource supplies a credit score for an applicant. The production
// implementation is a stand-in for a real bureau call; tests inject
// fixed scores so the decision policy stays deterministic.
type ScoreSource interface {
	Score(monthlyIncome float64) int
}

// IncomeDerivedScore mimics a bureau response by deriving a score from
// declared income, landing in the 650-899 band.
type IncomeDerivedScore struct{}

func (IncomeDerivedScore) Score(monthlyIncome float64) int {
	return 650 + int(monthlyIncome/10000)%250
}

// FixedScore always returns the same score. Test helper.
type FixedScore int

func (s FixedScore) Score(float64) int { return int(s) }

// DecisionPolicy evaluates the eligibility rule set in fixed order:
// credit-score floor first, FOIR ceiling second.
type DecisionPolicy struct {
	MinCreditScore int
	MaxFOIRPercent float64
}

// DefaultPolicy returns the standard thresholds: score floor 700,
// FOIR ceiling 50%.
func DefaultPolicy() DecisionPolicy {
	return DecisionPolicy{MinCreditScore: 700, MaxFOIRPercent: 50.0}
}

// Decide is pure: the same (score, foir) pair always yields the same
// decision. Rejected is terminal for the current cycle; Conditional
// permits a re-offer.
func (p DecisionPolicy) Decide(creditScore int, foirPercent float64) models.Decision {
	if creditScore < p.MinCreditScore {
		return models.DecisionRejected
	}
	if foirPercent > p.MaxFOIRPercent {
		return models.DecisionConditional
	}
	return models.DecisionApproved
}

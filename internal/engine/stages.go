// internal/engine/stages.go
package engine

import (
	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/models"
)

// transitions is the fixed forward-only stage graph. Conditional and
// Rejected loop back to EMI selection so the customer can retry with a
// revised offer; Sanctioned accepts nothing.
var transitions = map[models.Stage][]models.Stage{
	models.StageInitiated:       {models.StageOfferPresented, models.StageAwaitingProfile},
	models.StageAwaitingProfile: {models.StageOfferPresented},
	models.StageOfferPresented:  {models.StageEMISelected},
	models.StageEMISelected:     {models.StageKYCVerified, models.StageKYCFailed},
	models.StageKYCFailed:       {models.StageKYCVerified, models.StageKYCFailed},
	models.StageKYCVerified:     {models.StageApproved, models.StageConditional, models.StageRejected},
	models.StageApproved:        {models.StageSanctioned},
	models.StageConditional:     {models.StageEMISelected},
	models.StageRejected:        {models.StageEMISelected},
	models.StageSanctioned:      {},
}

// CanTransition reports whether the stage machine permits from -> to.
func CanTransition(from, to models.Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// requireStage returns a DomainRuleViolation unless the application sits
// in one of the allowed stages. Once KYC is verified the machine never
// moves backwards, so each operation states its entry stages explicitly.
func requireStage(app *models.LoanApplication, allowed ...models.Stage) error {
	for _, s := range allowed {
		if app.Stage == s {
			return nil
		}
	}
	if app.Stage == models.StageSanctioned {
		return apperrors.NewDomainRuleError("application is already sanctioned; no further transitions are accepted")
	}
	return apperrors.NewDomainRuleError("operation not permitted in stage " + string(app.Stage))
}

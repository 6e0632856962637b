// internal/models/stage.go
package models

// Stage is the lifecycle position of a loan application.
type Stage string

const (
	StageInitiated            Stage = "initiated"
	StageOfferPresented       Stage = "offer_presented"
	StageAwaitingProfile      Stage = "awaiting_profile"
	StageEMISelected          Stage = "emi_selected"
	StageKYCPending           Stage = "kyc_pending"
	StageKYCVerified          Stage = "kyc_verified"
	StageKYCFailed            Stage = "kyc_failed"
	StageEligibilityEvaluated Stage = "eligibility_evaluated"
	StageApproved             Stage = "approved"
	StageConditional          Stage = "conditional"
	StageRejected             Stage = "rejected"
	StageSanctioned           Stage = "sanctioned"
)

// Valid reports whether s is one of the fixed stage set.
func (s Stage) Valid() bool {
	switch s {
	case StageInitiated, StageOfferPresented, StageAwaitingProfile,
		StageEMISelected, StageKYCPending, StageKYCVerified, StageKYCFailed,
		StageEligibilityEvaluated, StageApproved, StageConditional,
		StageRejected, StageSanctioned:
		return true
	}
	return false
}

// Terminal reports whether no further transition is accepted from s.
// Rejected and Conditional are not terminal: they loop back to a new
// offer cycle. Sanctioned is the only hard stop.
func (s Stage) Terminal() bool {
	return s == StageSanctioned
}

// ActorRole tags a transcript entry with the party that produced it.
type ActorRole string

const (
	ActorCustomer     ActorRole = "customer"
	ActorMaster       ActorRole = "master_agent"
	ActorSales        ActorRole = "sales_agent"
	ActorVerification ActorRole = "verification_agent"
	ActorUnderwriting ActorRole = "underwriting_agent"
	ActorSanction     ActorRole = "sanction_agent"
)

// Decision is the outcome of an eligibility evaluation.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionConditional Decision = "conditional"
	DecisionRejected    Decision = "rejected"
)

// internal/engine/results.go
package engine

import "loanwise-engine/internal/models"

// CustomerSnapshot is the customer view returned alongside stage
// results.
type CustomerSnapshot struct {
	Phone            string  `json:"phone"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	PreApprovedLimit float64 `json:"preApprovedLimit"`
	PreApprovedRate  float64 `json:"preApprovedRate"`
}

// StartResult is the outcome of opening a new application.
type StartResult struct {
	ApplicationID string           `json:"applicationId"`
	Stage         models.Stage     `json:"stage"`
	IsNewCustomer bool             `json:"isNewCustomer"`
	Customer      CustomerSnapshot `json:"customer"`
	Message       string           `json:"message"`
}

// ProfileResult is the outcome of collecting a new customer's details.
type ProfileResult struct {
	ApplicationID string           `json:"applicationId"`
	Stage         models.Stage     `json:"stage"`
	Customer      CustomerSnapshot `json:"customer"`
	Message       string           `json:"message"`
}

// EMIResult is the outcome of selecting principal and tenure.
type EMIResult struct {
	ApplicationID string       `json:"applicationId"`
	Stage         models.Stage `json:"stage"`
	Installment   int64        `json:"installment"`
	TotalPayable  int64        `json:"totalPayable"`
	InterestRate  float64      `json:"interestRate"`
	Message       string       `json:"message"`
}

// KYCResult is the outcome of a KYC submission. A failed verification
// is a domain outcome, not an error: Verified is false and the
// application stays in the KYC stage for resubmission.
type KYCResult struct {
	ApplicationID string       `json:"applicationId"`
	Stage         models.Stage `json:"stage"`
	Verified      bool         `json:"verified"`
	Message       string       `json:"message"`
}

// EligibilityResult is the outcome of the decision policy run.
type EligibilityResult struct {
	ApplicationID string          `json:"applicationId"`
	Stage         models.Stage    `json:"stage"`
	Decision      models.Decision `json:"decision"`
	CreditScore   int             `json:"creditScore"`
	FOIR          float64         `json:"foir"`
	Message       string          `json:"message"`
}

// SanctionResult carries the rendered letter.
type SanctionResult struct {
	ApplicationID string       `json:"applicationId"`
	Stage         models.Stage `json:"stage"`
	Letter        string       `json:"letter"`
	Message       string       `json:"message"`
}

// ProfileInput is the full profile collected from a new customer. All
// fields are required; validation rejects the submission before any
// state is mutated.
type ProfileInput struct {
	Name    string
	DOB     string
	Email   string
	Address string
	Income  float64
}

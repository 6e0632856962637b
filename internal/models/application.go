// internal/models/application.go
package models

import "time"

// LoanApplication tracks one origination attempt for a customer. The
// application identifier is an opaque token generated at intake; a
// customer may own many applications.
type LoanApplication struct {
	ID              string  `json:"id"`
	ApplicationID   string  `json:"applicationId"`
	CustomerID      string  `json:"customerId"`
	RequestedAmount float64 `json:"requestedAmount,omitempty"`
	TenureMonths    int     `json:"tenureMonths,omitempty"`
	InterestRate    float64 `json:"interestRate,omitempty"`
	EMI             int64   `json:"emi,omitempty"`
	CreditScore     int     `json:"creditScore,omitempty"`
	MonthlyIncome   float64 `json:"monthlyIncome,omitempty"`
	FOIR            float64 `json:"foir,omitempty"`
	Stage           Stage   `json:"stage"`
	KYCAadhar       string  `json:"kycAadhar,omitempty"`
	KYCPAN          string  `json:"kycPan,omitempty"`
	KYCVerified     bool    `json:"kycVerified"`
	// SanctionLetter holds the rendered letter once the application is
	// sanctioned; empty before that.
	SanctionLetter string    `json:"sanctionLetter,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TotalPayable is the full repayment over the tenure.
func (a *LoanApplication) TotalPayable() int64 {
	return a.EMI * int64(a.TenureMonths)
}

// TranscriptEntry is one append-only message in an application's
// conversation log.
type TranscriptEntry struct {
	ID            int64                  `json:"id"`
	ApplicationID string                 `json:"applicationId"`
	Actor         ActorRole              `json:"actor"`
	Content       string                 `json:"content"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// ApplicationSnapshot is the read model returned by getApplication.
type ApplicationSnapshot struct {
	Application LoanApplication   `json:"application"`
	Customer    Customer          `json:"customer"`
	Transcript  []TranscriptEntry `json:"transcript"`
}

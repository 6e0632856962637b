// internal/store/store.go
package store

import (
	"context"

	"loanwise-engine/internal/models"
)

// CustomerStore persists customer records keyed by phone number.
type CustomerStore interface {
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	UpdateCustomer(ctx context.Context, c *models.Customer) error
}

// ApplicationStore persists loan applications. UpdateApplication is a
// compare-and-set: the write only lands when the stored stage still
// equals expectedStage, which guards concurrent transitions on the same
// application identifier.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a *models.LoanApplication) error
	GetApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error)
	UpdateApplication(ctx context.Context, a *models.LoanApplication, expectedStage models.Stage) error
}

// TranscriptStore appends and lists conversation entries. Append-only.
type TranscriptStore interface {
	AppendTranscript(ctx context.Context, e *models.TranscriptEntry) error
	ListTranscript(ctx context.Context, applicationID string) ([]models.TranscriptEntry, error)
}

// Store is the full persistence surface consumed by the stage engine.
type Store interface {
	CustomerStore
	ApplicationStore
	TranscriptStore
}

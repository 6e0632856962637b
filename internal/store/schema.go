// internal/store/schema.go
package store

import (
	"context"

	apperrors "loanwise-engine/internal/common/errors"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id                 UUID PRIMARY KEY,
		phone              VARCHAR(10) NOT NULL UNIQUE,
		name               TEXT NOT NULL,
		email              TEXT NOT NULL,
		dob                TEXT NOT NULL DEFAULT '',
		address            TEXT NOT NULL DEFAULT '',
		aadhar             TEXT NOT NULL DEFAULT '',
		pan                TEXT NOT NULL DEFAULT '',
		pre_approved_limit DOUBLE PRECISION NOT NULL,
		pre_approved_rate  DOUBLE PRECISION NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS loan_applications (
		id               UUID PRIMARY KEY,
		application_id   VARCHAR(16) NOT NULL UNIQUE,
		customer_id      UUID NOT NULL REFERENCES customers (id),
		requested_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		tenure_months    INTEGER NOT NULL DEFAULT 0,
		interest_rate    DOUBLE PRECISION NOT NULL DEFAULT 0,
		emi              BIGINT NOT NULL DEFAULT 0,
		credit_score     INTEGER NOT NULL DEFAULT 0,
		monthly_income   DOUBLE PRECISION NOT NULL DEFAULT 0,
		foir             DOUBLE PRECISION NOT NULL DEFAULT 0,
		stage            VARCHAR(32) NOT NULL,
		kyc_aadhar       TEXT NOT NULL DEFAULT '',
		kyc_pan          TEXT NOT NULL DEFAULT '',
		kyc_verified     BOOLEAN NOT NULL DEFAULT FALSE,
		sanction_letter  TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loan_applications_customer
		ON loan_applications (customer_id)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id             BIGSERIAL PRIMARY KEY,
		application_id VARCHAR(16) NOT NULL REFERENCES loan_applications (application_id),
		actor          VARCHAR(32) NOT NULL,
		content        TEXT NOT NULL,
		metadata       JSONB NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_application
		ON chat_messages (application_id, created_at)`,
}

// EnsureSchema creates the tables on startup. Statements are idempotent
// so repeated boots are safe.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageError("ensure schema", err)
		}
	}
	return nil
}

// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/models"
)

// PostgresStore implements Store on top of database/sql. Columns map
// 1:1 onto the customers / loan_applications / chat_messages tables.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// ==========================
// Customers
// ==========================

const customerColumns = `id, phone, name, email, dob, address, aadhar, pan,
	pre_approved_limit, pre_approved_rate, created_at, updated_at`

func (s *PostgresStore) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE phone = $1`, phone)
	return scanCustomer(row, "phone "+phone)
}

func (s *PostgresStore) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1`, id)
	return scanCustomer(row, id)
}

func scanCustomer(row *sql.Row, ref string) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.Phone, &c.Name, &c.Email, &c.DOB, &c.Address,
		&c.Aadhar, &c.PAN, &c.PreApprovedLimit, &c.PreApprovedRate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("customer", ref)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get customer", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (
			id, phone, name, email, dob, address, aadhar, pan,
			pre_approved_limit, pre_approved_rate, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		c.ID, c.Phone, c.Name, c.Email, c.DOB, c.Address, c.Aadhar, c.PAN,
		c.PreApprovedLimit, c.PreApprovedRate, now,
	)
	if err != nil {
		return apperrors.NewStorageError("create customer", err)
	}
	return nil
}

func (s *PostgresStore) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, dob = $4, address = $5,
			aadhar = $6, pan = $7, updated_at = $8
		WHERE id = $1`,
		c.ID, c.Name, c.Email, c.DOB, c.Address, c.Aadhar, c.PAN, c.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("update customer", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("customer", c.ID)
	}
	return nil
}

// ==========================
// Applications
// ==========================

const applicationColumns = `id, application_id, customer_id, requested_amount,
	tenure_months, interest_rate, emi, credit_score, monthly_income, foir,
	stage, kyc_aadhar, kyc_pan, kyc_verified, sanction_letter, created_at, updated_at`

func (s *PostgresStore) CreateApplication(ctx context.Context, a *models.LoanApplication) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_applications (
			id, application_id, customer_id, requested_amount, tenure_months,
			interest_rate, emi, credit_score, monthly_income, foir, stage,
			kyc_aadhar, kyc_pan, kyc_verified, sanction_letter, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`,
		a.ID, a.ApplicationID, a.CustomerID, a.RequestedAmount, a.TenureMonths,
		a.InterestRate, a.EMI, a.CreditScore, a.MonthlyIncome, a.FOIR, a.Stage,
		a.KYCAadhar, a.KYCPAN, a.KYCVerified, a.SanctionLetter, now,
	)
	if err != nil {
		return apperrors.NewStorageError("create application", err)
	}
	return nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM loan_applications
		WHERE application_id = $1`, applicationID)

	var a models.LoanApplication
	err := row.Scan(
		&a.ID, &a.ApplicationID, &a.CustomerID, &a.RequestedAmount,
		&a.TenureMonths, &a.InterestRate, &a.EMI, &a.CreditScore,
		&a.MonthlyIncome, &a.FOIR, &a.Stage, &a.KYCAadhar, &a.KYCPAN,
		&a.KYCVerified, &a.SanctionLetter, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("application", applicationID)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get application", err)
	}
	return &a, nil
}

// UpdateApplication writes the full mutable record, guarded by a
// compare-and-set on the stage column. A concurrent transition that
// already moved the stage makes the write a no-op and surfaces as a
// domain-rule violation rather than a lost update.
func (s *PostgresStore) UpdateApplication(ctx context.Context, a *models.LoanApplication, expectedStage models.Stage) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE loan_applications
		SET requested_amount = $3, tenure_months = $4, interest_rate = $5,
			emi = $6, credit_score = $7, monthly_income = $8, foir = $9,
			stage = $10, kyc_aadhar = $11, kyc_pan = $12, kyc_verified = $13,
			sanction_letter = $14, updated_at = $15
		WHERE application_id = $1 AND stage = $2`,
		a.ApplicationID, expectedStage, a.RequestedAmount, a.TenureMonths,
		a.InterestRate, a.EMI, a.CreditScore, a.MonthlyIncome, a.FOIR,
		a.Stage, a.KYCAadhar, a.KYCPAN, a.KYCVerified, a.SanctionLetter,
		a.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("update application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("update application", err)
	}
	if n == 0 {
		// Distinguish a vanished record from a concurrent stage change.
		if _, getErr := s.GetApplication(ctx, a.ApplicationID); getErr != nil {
			return getErr
		}
		return apperrors.NewDomainRuleError(
			fmt.Sprintf("application %s changed stage concurrently", a.ApplicationID))
	}
	return nil
}

// ==========================
// Transcript
// ==========================

func (s *PostgresStore) AppendTranscript(ctx context.Context, e *models.TranscriptEntry) error {
	e.CreatedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		s.logger.Warn("failed to marshal transcript metadata", map[string]interface{}{
			"error":         err,
			"applicationId": e.ApplicationID,
		})
		metadataJSON = []byte("{}")
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (application_id, actor, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.ApplicationID, e.Actor, e.Content, metadataJSON, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return apperrors.NewStorageError("append transcript", err)
	}
	return nil
}

func (s *PostgresStore) ListTranscript(ctx context.Context, applicationID string) ([]models.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, actor, content, metadata, created_at
		FROM chat_messages
		WHERE application_id = $1
		ORDER BY created_at, id`, applicationID)
	if err != nil {
		return nil, apperrors.NewStorageError("list transcript", err)
	}
	defer rows.Close()

	var entries []models.TranscriptEntry
	for rows.Next() {
		var e models.TranscriptEntry
		var metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.Actor, &e.Content, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, apperrors.NewStorageError("list transcript", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				s.logger.Warn("failed to unmarshal transcript metadata", map[string]interface{}{
					"error": err,
					"entry": e.ID,
				})
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list transcript", err)
	}
	return entries, nil
}

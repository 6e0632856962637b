// internal/transport/httpapi/handlers.go

// Package httpapi exposes the stage engine over HTTP. One route per
// transition plus a read-only application view.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/common/logger"
	schema "loanwise-engine/internal/common/validation"
	"loanwise-engine/internal/engine"
	"loanwise-engine/internal/models"
)

// maxBodyBytes caps request bodies; no operation carries more than a
// short profile.
const maxBodyBytes = 64 << 10

// Service is the engine surface the transport depends on.
type Service interface {
	Start(ctx context.Context, phone string) (*engine.StartResult, error)
	SubmitProfile(ctx context.Context, applicationID string, in engine.ProfileInput) (*engine.ProfileResult, error)
	SelectEMI(ctx context.Context, applicationID string, principal float64, tenureMonths int) (*engine.EMIResult, error)
	SubmitKYC(ctx context.Context, applicationID, aadhar, pan string) (*engine.KYCResult, error)
	EvaluateEligibility(ctx context.Context, applicationID string, monthlyIncome float64) (*engine.EligibilityResult, error)
	Sanction(ctx context.Context, applicationID string) (*engine.SanctionResult, error)
	GetApplication(ctx context.Context, applicationID string) (*models.ApplicationSnapshot, error)
}

type Handler struct {
	svc    Service
	logger logger.Logger
}

func NewHandler(svc Service, log logger.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: log.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
}

// decode runs the two-stage boundary check and fills dst from the body.
func decode(r *http.Request, s *schema.Schema, dst interface{ Validate() error }) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("unable to read request body")
	}
	if err := s.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError("request body is not valid JSON")
	}
	if err := dst.Validate(); err != nil {
		return apperrors.NewValidationErrorf("request validation failed: %v", err)
	}
	return nil
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decode(r, startSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.Start(r.Context(), req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) submitProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, profileSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.SubmitProfile(r.Context(), chi.URLParam(r, "appID"), engine.ProfileInput{
		Name:    req.Name,
		DOB:     req.DOB,
		Email:   req.Email,
		Address: req.Address,
		Income:  req.Income,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) selectEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := decode(r, emiSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.SelectEMI(r.Context(), chi.URLParam(r, "appID"), req.Amount, req.TenureMonths)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) submitKYC(w http.ResponseWriter, r *http.Request) {
	var req kycRequest
	if err := decode(r, kycSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.SubmitKYC(r.Context(), chi.URLParam(r, "appID"), req.Aadhar, req.PAN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) evaluateEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := decode(r, eligibilitySchema, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.EvaluateEligibility(r.Context(), chi.URLParam(r, "appID"), req.MonthlyIncome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) sanction(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Sanction(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetApplication(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

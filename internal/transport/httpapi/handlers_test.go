package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/engine"
	"loanwise-engine/internal/models"
)

// ==========================
// Fake service
// ==========================

type fakeService struct {
	startResult       *engine.StartResult
	profileResult     *engine.ProfileResult
	emiResult         *engine.EMIResult
	kycResult         *engine.KYCResult
	eligibilityResult *engine.EligibilityResult
	sanctionResult    *engine.SanctionResult
	snapshot          *models.ApplicationSnapshot
	err               error

	lastAppID string
	lastPhone string
}

func (f *fakeService) Start(_ context.Context, phone string) (*engine.StartResult, error) {
	f.lastPhone = phone
	return f.startResult, f.err
}

func (f *fakeService) SubmitProfile(_ context.Context, appID string, _ engine.ProfileInput) (*engine.ProfileResult, error) {
	f.lastAppID = appID
	return f.profileResult, f.err
}

func (f *fakeService) SelectEMI(_ context.Context, appID string, _ float64, _ int) (*engine.EMIResult, error) {
	f.lastAppID = appID
	return f.emiResult, f.err
}

func (f *fakeService) SubmitKYC(_ context.Context, appID, _, _ string) (*engine.KYCResult, error) {
	f.lastAppID = appID
	return f.kycResult, f.err
}

func (f *fakeService) EvaluateEligibility(_ context.Context, appID string, _ float64) (*engine.EligibilityResult, error) {
	f.lastAppID = appID
	return f.eligibilityResult, f.err
}

func (f *fakeService) Sanction(_ context.Context, appID string) (*engine.SanctionResult, error) {
	f.lastAppID = appID
	return f.sanctionResult, f.err
}

func (f *fakeService) GetApplication(_ context.Context, appID string) (*models.ApplicationSnapshot, error) {
	f.lastAppID = appID
	return f.snapshot, f.err
}

// ==========================
// Test helpers
// ==========================

func serve(t *testing.T, svc Service, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewHandler(svc, logger.NewTestLogger(t)), logger.NewTestLogger(t))

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

// ==========================
// Start
// ==========================

func TestStart_Success(t *testing.T) {
	svc := &fakeService{startResult: &engine.StartResult{
		ApplicationID: "APP1A2B3C4D5E",
		Stage:         models.StageOfferPresented,
	}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/start",
		map[string]string{"phone": "9876543210"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "9876543210", svc.lastPhone)

	var result engine.StartResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "APP1A2B3C4D5E", result.ApplicationID)
}

func TestStart_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "not json", body: "{"},
		{name: "missing phone", body: map[string]string{}},
		{name: "phone wrong type", body: map[string]int{"phone": 9876543210}},
		{name: "unknown field rejected", body: map[string]string{"phone": "9876543210", "extra": "x"}},
		{name: "phone too short", body: map[string]string{"phone": "12345"}},
		{name: "phone not numeric", body: map[string]string{"phone": "98765abcde"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{startResult: &engine.StartResult{}}
			rec := serve(t, svc, http.MethodPost, "/api/applications/start", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apperrors.KindValidation, decodeError(t, rec).Kind)
			// The service is never reached on a validation failure.
			assert.Empty(t, svc.lastPhone)
		})
	}
}

// ==========================
// Stage operations
// ==========================

func TestSubmitProfile_Success(t *testing.T) {
	svc := &fakeService{profileResult: &engine.ProfileResult{Stage: models.StageOfferPresented}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/profile",
		map[string]interface{}{
			"name":    "Asha Verma",
			"dob":     "1992-04-18",
			"email":   "asha@example.com",
			"address": "42 MG Road, Pune",
			"income":  80000,
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APP1A2B3C4D5E", svc.lastAppID)
}

func TestSubmitProfile_BadEmail(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/profile",
		map[string]interface{}{
			"name":    "Asha Verma",
			"dob":     "1992-04-18",
			"email":   "not-an-email",
			"address": "42 MG Road, Pune",
			"income":  80000,
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectEMI_Success(t *testing.T) {
	svc := &fakeService{emiResult: &engine.EMIResult{
		Stage:       models.StageEMISelected,
		Installment: 26795,
	}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/emi",
		map[string]interface{}{"amount": 300000, "tenureMonths": 12})

	assert.Equal(t, http.StatusOK, rec.Code)

	var result engine.EMIResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(26795), result.Installment)
}

func TestSelectEMI_NonIntegerTenure(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/api/applications/APP1A2B3C4D5E/emi",
		map[string]interface{}{"amount": 300000, "tenureMonths": 12.5})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitKYC_FailedVerificationIsOK(t *testing.T) {
	// Verification failure is a domain outcome, delivered with a 200.
	svc := &fakeService{kycResult: &engine.KYCResult{
		Stage:    models.StageKYCFailed,
		Verified: false,
	}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/kyc",
		map[string]string{"aadhar": "12345", "pan": "ABCDE1234P"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var result engine.KYCResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Verified)
	assert.Equal(t, models.StageKYCFailed, result.Stage)
}

func TestEvaluateEligibility_Success(t *testing.T) {
	svc := &fakeService{eligibilityResult: &engine.EligibilityResult{
		Stage:    models.StageApproved,
		Decision: models.DecisionApproved,
	}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/eligibility",
		map[string]interface{}{"monthlyIncome": 80000})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSanction_Success(t *testing.T) {
	svc := &fakeService{sanctionResult: &engine.SanctionResult{
		Stage:  models.StageSanctioned,
		Letter: "<div>letter</div>",
	}}

	rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/sanction", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetApplication_Success(t *testing.T) {
	svc := &fakeService{snapshot: &models.ApplicationSnapshot{
		Application: models.LoanApplication{
			ApplicationID: "APP1A2B3C4D5E",
			Stage:         models.StageSanctioned,
		},
	}}

	rec := serve(t, svc, http.MethodGet, "/api/applications/APP1A2B3C4D5E", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap models.ApplicationSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.StageSanctioned, snap.Application.Stage)
}

// ==========================
// Error mapping
// ==========================

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   apperrors.Kind
	}{
		{
			name:       "domain rule conflict",
			err:        apperrors.NewDomainRuleError("operation not permitted in stage sanctioned"),
			wantStatus: http.StatusConflict,
			wantKind:   apperrors.KindDomainRule,
		},
		{
			name:       "unknown application",
			err:        apperrors.NewNotFoundError("application", "APPMISSING01"),
			wantStatus: http.StatusNotFound,
			wantKind:   apperrors.KindNotFound,
		},
		{
			name:       "storage failure",
			err:        apperrors.NewStorageError("update application", assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantKind:   apperrors.KindStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := serve(t, svc, http.MethodPost, "/api/applications/APP1A2B3C4D5E/sanction", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
		})
	}
}

// ==========================
// Operational endpoints
// ==========================

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

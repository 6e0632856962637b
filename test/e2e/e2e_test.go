// test/e2e/e2e_test.go

// End-to-end pipeline test: every stage transition exercised over the
// HTTP API, backed by the real engine with an in-memory store. Runs
// without external infrastructure.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanwise-engine/internal/common/config"
	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/engine"
	"loanwise-engine/internal/letter"
	"loanwise-engine/internal/models"
	"loanwise-engine/internal/transport/httpapi"
)

// ==========================
// In-memory store
// ==========================

type memStore struct {
	mu           sync.Mutex
	customers    map[string]*models.Customer
	applications map[string]*models.LoanApplication
	transcripts  map[string][]models.TranscriptEntry
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		customers:    make(map[string]*models.Customer),
		applications: make(map[string]*models.LoanApplication),
		transcripts:  make(map[string][]models.TranscriptEntry),
	}
}

func (m *memStore) GetCustomerByPhone(_ context.Context, phone string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Phone == phone {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("customer", phone)
}

func (m *memStore) GetCustomerByID(_ context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("customer", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.ID]; !ok {
		return apperrors.NewNotFoundError("customer", c.ID)
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *memStore) CreateApplication(_ context.Context, a *models.LoanApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.applications[a.ApplicationID] = &cp
	return nil
}

func (m *memStore) GetApplication(_ context.Context, applicationID string) (*models.LoanApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[applicationID]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", applicationID)
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) UpdateApplication(_ context.Context, a *models.LoanApplication, expectedStage models.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.applications[a.ApplicationID]
	if !ok {
		return apperrors.NewNotFoundError("application", a.ApplicationID)
	}
	if stored.Stage != expectedStage {
		return apperrors.NewDomainRuleError("application " + a.ApplicationID + " changed stage concurrently")
	}
	cp := *a
	m.applications[a.ApplicationID] = &cp
	return nil
}

func (m *memStore) AppendTranscript(_ context.Context, e *models.TranscriptEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	m.transcripts[e.ApplicationID] = append(m.transcripts[e.ApplicationID], *e)
	return nil
}

func (m *memStore) ListTranscript(_ context.Context, applicationID string) ([]models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.transcripts[applicationID]
	out := make([]models.TranscriptEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// ==========================
// Harness
// ==========================

type harness struct {
	server *httptest.Server
}

func newHarness(t *testing.T, scores engine.ScoreSource) *harness {
	t.Helper()
	renderer, err := letter.NewRenderer()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	eng := engine.New(engine.Params{
		Store:   newMemStore(),
		Scores:  scores,
		Letters: renderer,
		Offer:   config.OfferConfig{DefaultLimit: 300000, DefaultRate: 13.0},
		Clock:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		Logger:  log,
	})

	router := httpapi.NewRouter(httpapi.NewHandler(eng, log), log)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &harness{server: server}
}

func (h *harness) post(t *testing.T, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(h.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (h *harness) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ==========================
// Pipeline
// ==========================

func TestPipeline_NewCustomerToSanction(t *testing.T) {
	h := newHarness(t, engine.FixedScore(750))

	// 1. Start with an unknown number.
	var started engine.StartResult
	code := h.post(t, "/api/applications/start",
		map[string]string{"phone": "9876543210"}, &started)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, started.IsNewCustomer)
	assert.Equal(t, models.StageAwaitingProfile, started.Stage)

	base := "/api/applications/" + started.ApplicationID

	// 2. Profile collection.
	var profiled engine.ProfileResult
	code = h.post(t, base+"/profile", map[string]interface{}{
		"name":    "Asha Verma",
		"dob":     "1992-04-18",
		"email":   "asha@example.com",
		"address": "42 MG Road, Pune",
		"income":  80000,
	}, &profiled)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StageOfferPresented, profiled.Stage)

	// 3. EMI selection.
	var emi engine.EMIResult
	code = h.post(t, base+"/emi",
		map[string]interface{}{"amount": 300000, "tenureMonths": 12}, &emi)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(26795), emi.Installment)
	assert.Equal(t, int64(321540), emi.TotalPayable)

	// 4. KYC.
	var kyc engine.KYCResult
	code = h.post(t, base+"/kyc",
		map[string]string{"aadhar": "123456789012", "pan": "abcde1234p"}, &kyc)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, kyc.Verified)
	assert.Equal(t, models.StageKYCVerified, kyc.Stage)

	// 5. Eligibility.
	var elig engine.EligibilityResult
	code = h.post(t, base+"/eligibility",
		map[string]interface{}{"monthlyIncome": 80000}, &elig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.DecisionApproved, elig.Decision)
	assert.InDelta(t, 33.49, elig.FOIR, 0.01)

	// 6. Sanction.
	var sanctioned engine.SanctionResult
	code = h.post(t, base+"/sanction", nil, &sanctioned)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StageSanctioned, sanctioned.Stage)
	assert.Contains(t, sanctioned.Letter, "LOAN SANCTION LETTER")
	assert.Contains(t, sanctioned.Letter, "Asha Verma")

	// 7. Read model: six transitions, twelve transcript entries.
	var snap models.ApplicationSnapshot
	code = h.get(t, base, &snap)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StageSanctioned, snap.Application.Stage)
	assert.Len(t, snap.Transcript, 12)
	for i, entry := range snap.Transcript {
		if i%2 == 0 {
			assert.Equal(t, models.ActorCustomer, entry.Actor, "entry %d", i)
		} else {
			assert.NotEqual(t, models.ActorCustomer, entry.Actor, "entry %d", i)
		}
	}

	// 8. Sanctioned is terminal.
	code = h.post(t, base+"/sanction", nil, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestPipeline_RejectionAndRetry(t *testing.T) {
	h := newHarness(t, engine.FixedScore(650))

	var started engine.StartResult
	code := h.post(t, "/api/applications/start",
		map[string]string{"phone": "9876543210"}, &started)
	require.Equal(t, http.StatusCreated, code)
	base := "/api/applications/" + started.ApplicationID

	code = h.post(t, base+"/profile", map[string]interface{}{
		"name":    "Ravi Kumar",
		"dob":     "1988-11-02",
		"email":   "ravi@example.com",
		"address": "7 Brigade Road, Bengaluru",
		"income":  60000,
	}, nil)
	require.Equal(t, http.StatusOK, code)

	code = h.post(t, base+"/emi",
		map[string]interface{}{"amount": 200000, "tenureMonths": 24}, nil)
	require.Equal(t, http.StatusOK, code)

	code = h.post(t, base+"/kyc",
		map[string]string{"aadhar": "123456789012", "pan": "ABCDE1234P"}, nil)
	require.Equal(t, http.StatusOK, code)

	var elig engine.EligibilityResult
	code = h.post(t, base+"/eligibility",
		map[string]interface{}{"monthlyIncome": 60000}, &elig)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.DecisionRejected, elig.Decision)

	// Rejection is not terminal: a revised offer re-enters the pipeline.
	var emi engine.EMIResult
	code = h.post(t, base+"/emi",
		map[string]interface{}{"amount": 100000, "tenureMonths": 36}, &emi)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StageEMISelected, emi.Stage)
}

func TestPipeline_KYCFailureAndResubmit(t *testing.T) {
	h := newHarness(t, engine.FixedScore(750))

	var started engine.StartResult
	require.Equal(t, http.StatusCreated, h.post(t, "/api/applications/start",
		map[string]string{"phone": "9876543210"}, &started))
	base := "/api/applications/" + started.ApplicationID

	require.Equal(t, http.StatusOK, h.post(t, base+"/profile", map[string]interface{}{
		"name":    "Asha Verma",
		"dob":     "1992-04-18",
		"email":   "asha@example.com",
		"address": "42 MG Road, Pune",
		"income":  80000,
	}, nil))
	require.Equal(t, http.StatusOK, h.post(t, base+"/emi",
		map[string]interface{}{"amount": 300000, "tenureMonths": 12}, nil))

	var failed engine.KYCResult
	require.Equal(t, http.StatusOK, h.post(t, base+"/kyc",
		map[string]string{"aadhar": "1234", "pan": "ABCDE1234P"}, &failed))
	assert.False(t, failed.Verified)
	assert.Equal(t, models.StageKYCFailed, failed.Stage)

	var retried engine.KYCResult
	require.Equal(t, http.StatusOK, h.post(t, base+"/kyc",
		map[string]string{"aadhar": "123456789012", "pan": "ABCDE1234P"}, &retried))
	assert.True(t, retried.Verified)
}

func TestPipeline_StageGuardsOverHTTP(t *testing.T) {
	h := newHarness(t, engine.FixedScore(750))

	var started engine.StartResult
	require.Equal(t, http.StatusCreated, h.post(t, "/api/applications/start",
		map[string]string{"phone": "9876543210"}, &started))
	base := "/api/applications/" + started.ApplicationID

	// KYC before the offer is even presented.
	code := h.post(t, base+"/kyc",
		map[string]string{"aadhar": "123456789012", "pan": "ABCDE1234P"}, nil)
	assert.Equal(t, http.StatusConflict, code)

	// Unknown application.
	code = h.post(t, "/api/applications/APPMISSING01/emi",
		map[string]interface{}{"amount": 100000, "tenureMonths": 12}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPipeline_ConcurrentSanctionOnlyOneWins(t *testing.T) {
	h := newHarness(t, engine.FixedScore(750))

	var started engine.StartResult
	require.Equal(t, http.StatusCreated, h.post(t, "/api/applications/start",
		map[string]string{"phone": "9876543210"}, &started))
	base := "/api/applications/" + started.ApplicationID

	require.Equal(t, http.StatusOK, h.post(t, base+"/profile", map[string]interface{}{
		"name":    "Asha Verma",
		"dob":     "1992-04-18",
		"email":   "asha@example.com",
		"address": "42 MG Road, Pune",
		"income":  80000,
	}, nil))
	require.Equal(t, http.StatusOK, h.post(t, base+"/emi",
		map[string]interface{}{"amount": 300000, "tenureMonths": 12}, nil))
	require.Equal(t, http.StatusOK, h.post(t, base+"/kyc",
		map[string]string{"aadhar": "123456789012", "pan": "ABCDE1234P"}, nil))
	require.Equal(t, http.StatusOK, h.post(t, base+"/eligibility",
		map[string]interface{}{"monthlyIncome": 80000}, nil))

	const attempts = 8
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(h.server.URL+base+"/sanction", "application/json", nil)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	okCount, conflictCount := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			okCount++
		case http.StatusConflict:
			conflictCount++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, okCount, "exactly one sanction must land")
	assert.Equal(t, attempts-1, conflictCount)

	var snap models.ApplicationSnapshot
	require.Equal(t, http.StatusOK, h.get(t, base, &snap))
	assert.Equal(t, models.StageSanctioned, snap.Application.Stage)
	// One winning transition appended exactly one entry pair.
	assert.Len(t, snap.Transcript, 12)
}

// internal/engine/engine.go

// Package engine implements the loan origination stage machine: a
// chat-style pipeline that walks one application from first contact to
// sanction. Every successful transition appends exactly two transcript
// entries, the customer's submission and the acting agent's response.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"loanwise-engine/internal/common/config"
	apperrors "loanwise-engine/internal/common/errors"
	"loanwise-engine/internal/common/logger"
	"loanwise-engine/internal/common/metrics"
	"loanwise-engine/internal/letter"
	"loanwise-engine/internal/models"
	"loanwise-engine/internal/notify"
	"loanwise-engine/internal/store"
)

// ==========================
// Engine
// ==========================

// Engine drives stage transitions for loan applications. All state
// lives in the store; the engine itself carries no per-application
// state and is safe for concurrent use.
type Engine struct {
	store    store.Store
	cache    *store.SnapshotCache
	policy   DecisionPolicy
	scores   ScoreSource
	kyc      DocumentCheck
	letters  *letter.Renderer
	notifier notify.Notifier
	offer    config.OfferConfig
	clock    func() time.Time
	newID    func() string
	logger   logger.Logger
}

// Params collects the engine's collaborators. Store, Letters and Logger
// are required; the rest default to production implementations.
type Params struct {
	Store    store.Store
	Cache    *store.SnapshotCache
	Policy   DecisionPolicy
	Scores   ScoreSource
	KYC      DocumentCheck
	Letters  *letter.Renderer
	Notifier notify.Notifier
	Offer    config.OfferConfig
	Clock    func() time.Time
	NewID    func() string
	Logger   logger.Logger
}

func New(p Params) *Engine {
	if p.Policy == (DecisionPolicy{}) {
		p.Policy = DefaultPolicy()
	}
	if p.Scores == nil {
		p.Scores = IncomeDerivedScore{}
	}
	if p.KYC == nil {
		p.KYC = FormatDocumentCheck{}
	}
	if p.Notifier == nil {
		p.Notifier = notify.NoopNotifier{}
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.NewID == nil {
		p.NewID = newApplicationID
	}
	return &Engine{
		store:    p.Store,
		cache:    p.Cache,
		policy:   p.Policy,
		scores:   p.Scores,
		kyc:      p.KYC,
		letters:  p.Letters,
		notifier: p.Notifier,
		offer:    p.Offer,
		clock:    p.Clock,
		newID:    p.NewID,
		logger:   p.Logger.WithFields(map[string]interface{}{"component": "stage-engine"}),
	}
}

// newApplicationID derives an opaque application token from a UUID.
func newApplicationID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "APP" + raw[:10]
}

// ==========================
// Start
// ==========================

// Start opens a new application for a phone number. A known customer
// lands directly on the pre-approved offer; an unknown number gets a
// placeholder customer record and is asked for profile details first.
func (e *Engine) Start(ctx context.Context, phone string) (*StartResult, error) {
	if err := validatePhone(phone); err != nil {
		return nil, err
	}

	now := e.clock()
	isNew := false

	customer, err := e.store.GetCustomerByPhone(ctx, phone)
	switch {
	case err == nil:
	case apperrors.KindOf(err) == apperrors.KindNotFound:
		isNew = true
		customer = &models.Customer{
			ID:               uuid.NewString(),
			Phone:            phone,
			Name:             "User " + phone[len(phone)-4:],
			Email:            fmt.Sprintf("user_%s@loanwise.com", phone),
			PreApprovedLimit: e.offer.DefaultLimit,
			PreApprovedRate:  e.offer.DefaultRate,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := e.store.CreateCustomer(ctx, customer); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	stage := models.StageOfferPresented
	if isNew {
		stage = models.StageAwaitingProfile
	}

	app := &models.LoanApplication{
		ID:            uuid.NewString(),
		ApplicationID: e.newID(),
		CustomerID:    customer.ID,
		InterestRate:  customer.PreApprovedRate,
		Stage:         stage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	agentMsg := fmt.Sprintf(
		"Welcome back, %s! You have a pre-approved loan offer of up to Rs.%.0f at %.2f%% p.a. How much would you like to borrow?",
		customer.Name, customer.PreApprovedLimit, customer.PreApprovedRate,
	)
	if isNew {
		agentMsg = "Welcome to LoanWise! I could not find an existing profile for this number. Please share your name, date of birth, email, address and monthly income so I can set up your offer."
	}

	if err := e.appendPair(ctx, app.ApplicationID,
		entry(models.ActorCustomer, "Hi, I would like to apply for a loan. My number is "+phone, nil),
		entry(models.ActorMaster, agentMsg, map[string]interface{}{
			"stage":            string(stage),
			"isNewCustomer":    isNew,
			"preApprovedLimit": customer.PreApprovedLimit,
			"preApprovedRate":  customer.PreApprovedRate,
		}),
	); err != nil {
		return nil, err
	}

	metrics.StageTransitions.WithLabelValues(string(models.StageInitiated), string(stage)).Inc()
	e.logger.Info("application started", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"stage":         string(stage),
		"isNewCustomer": isNew,
	})

	return &StartResult{
		ApplicationID: app.ApplicationID,
		Stage:         stage,
		IsNewCustomer: isNew,
		Customer:      customerSnapshot(customer),
		Message:       agentMsg,
	}, nil
}

// ==========================
// SubmitProfile
// ==========================

// SubmitProfile records a new customer's details and presents the
// offer. Only applications waiting on a profile accept this.
func (e *Engine) SubmitProfile(ctx context.Context, applicationID string, in ProfileInput) (*ProfileResult, error) {
	if err := validateProfile(in); err != nil {
		return nil, err
	}

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := requireStage(app, models.StageAwaitingProfile); err != nil {
		return nil, e.rejected("submitProfile", err)
	}

	customer, err := e.store.GetCustomerByID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	customer.Name = in.Name
	customer.DOB = in.DOB
	customer.Email = in.Email
	customer.Address = in.Address
	customer.UpdatedAt = now
	if err := e.store.UpdateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	from := app.Stage
	app.Stage = models.StageOfferPresented
	app.MonthlyIncome = in.Income
	app.UpdatedAt = now
	if err := e.store.UpdateApplication(ctx, app, from); err != nil {
		return nil, err
	}

	agentMsg := fmt.Sprintf(
		"Thanks, %s! Your profile is set up. You have a pre-approved loan offer of up to Rs.%.0f at %.2f%% p.a. How much would you like to borrow?",
		customer.Name, customer.PreApprovedLimit, customer.PreApprovedRate,
	)

	if err := e.appendPair(ctx, applicationID,
		entry(models.ActorCustomer,
			fmt.Sprintf("My details: name %s, DOB %s, email %s, address %s, monthly income Rs.%.0f",
				in.Name, in.DOB, in.Email, in.Address, in.Income),
			map[string]interface{}{
				"name":    in.Name,
				"dob":     in.DOB,
				"email":   in.Email,
				"address": in.Address,
				"income":  in.Income,
			}),
		entry(models.ActorMaster, agentMsg, map[string]interface{}{
			"stage": string(app.Stage),
		}),
	); err != nil {
		return nil, err
	}

	e.finishTransition(ctx, applicationID, from, app.Stage, "submitProfile")

	return &ProfileResult{
		ApplicationID: applicationID,
		Stage:         app.Stage,
		Customer:      customerSnapshot(customer),
		Message:       agentMsg,
	}, nil
}

// ==========================
// SelectEMI
// ==========================

// SelectEMI locks the requested amount and tenure, computes the
// installment at the customer's pre-approved rate, and moves the
// application to KYC. Conditional and Rejected applications may come
// back here for a revised offer.
func (e *Engine) SelectEMI(ctx context.Context, applicationID string, principal float64, tenureMonths int) (*EMIResult, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := requireStage(app,
		models.StageOfferPresented, models.StageConditional, models.StageRejected); err != nil {
		return nil, e.rejected("selectEmi", err)
	}

	customer, err := e.store.GetCustomerByID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}

	rate := customer.PreApprovedRate
	installment, err := MonthlyInstallment(principal, rate, tenureMonths)
	if err != nil {
		return nil, e.rejected("selectEmi", err)
	}
	total := TotalPayable(installment, tenureMonths)

	from := app.Stage
	app.RequestedAmount = principal
	app.TenureMonths = tenureMonths
	app.InterestRate = rate
	app.EMI = installment
	app.Stage = models.StageEMISelected
	app.UpdatedAt = e.clock()
	if err := e.store.UpdateApplication(ctx, app, from); err != nil {
		return nil, err
	}

	agentMsg := fmt.Sprintf(
		"For Rs.%.0f over %d months at %.2f%% p.a., your monthly EMI comes to Rs.%d (total payable Rs.%d). Next, let's verify your KYC. Please share your Aadhaar and PAN.",
		principal, tenureMonths, rate, installment, total,
	)

	if err := e.appendPair(ctx, applicationID,
		entry(models.ActorCustomer,
			fmt.Sprintf("I want to borrow Rs.%.0f for %d months", principal, tenureMonths), nil),
		entry(models.ActorSales, agentMsg, map[string]interface{}{
			"principal":    principal,
			"tenureMonths": tenureMonths,
			"interestRate": rate,
			"emi":          installment,
			"totalPayable": total,
		}),
	); err != nil {
		return nil, err
	}

	e.finishTransition(ctx, applicationID, from, app.Stage, "selectEmi")

	return &EMIResult{
		ApplicationID: applicationID,
		Stage:         app.Stage,
		Installment:   installment,
		TotalPayable:  total,
		InterestRate:  rate,
		Message:       agentMsg,
	}, nil
}

// ==========================
// SubmitKYC
// ==========================

// SubmitKYC verifies the identity documents. A failed check is a
// domain outcome, not an error: the application moves to KYCFailed and
// the customer may resubmit.
func (e *Engine) SubmitKYC(ctx context.Context, applicationID, aadhar, pan string) (*KYCResult, error) {
	aadhar = strings.TrimSpace(aadhar)
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if aadhar == "" || pan == "" {
		return nil, apperrors.NewValidationError("aadhar and pan are required")
	}

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := requireStage(app, models.StageEMISelected, models.StageKYCFailed); err != nil {
		return nil, e.rejected("submitKyc", err)
	}

	verified := e.kyc.Verify(aadhar, pan)

	from := app.Stage
	app.KYCAadhar = aadhar
	app.KYCPAN = pan
	app.KYCVerified = verified
	if verified {
		app.Stage = models.StageKYCVerified
	} else {
		app.Stage = models.StageKYCFailed
	}
	app.UpdatedAt = e.clock()
	if err := e.store.UpdateApplication(ctx, app, from); err != nil {
		return nil, err
	}

	agentMsg := "KYC verification successful. Your documents are verified. Next, please share your monthly income so I can check your eligibility."
	if !verified {
		agentMsg = "KYC verification failed. Please check your documents: Aadhaar must be 12 digits and PAN must be a valid 10 character identifier."
	}

	if err := e.appendPair(ctx, applicationID,
		entry(models.ActorCustomer,
			fmt.Sprintf("Aadhaar: %s, PAN: %s", maskAadhar(aadhar), pan), nil),
		entry(models.ActorVerification, agentMsg, map[string]interface{}{
			"verified": verified,
			"stage":    string(app.Stage),
		}),
	); err != nil {
		return nil, err
	}

	e.finishTransition(ctx, applicationID, from, app.Stage, "submitKyc")

	return &KYCResult{
		ApplicationID: applicationID,
		Stage:         app.Stage,
		Verified:      verified,
		Message:       agentMsg,
	}, nil
}

// ==========================
// EvaluateEligibility
// ==========================

// EvaluateEligibility runs the decision policy against a fresh credit
// score and a FOIR recomputed from the locked installment and the
// declared income.
func (e *Engine) EvaluateEligibility(ctx context.Context, applicationID string, monthlyIncome float64) (*EligibilityResult, error) {
	if monthlyIncome <= 0 {
		return nil, apperrors.NewValidationError("monthly income must be positive")
	}

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := requireStage(app, models.StageKYCVerified); err != nil {
		return nil, e.rejected("evaluateEligibility", err)
	}

	score := e.scores.Score(monthlyIncome)
	foir, err := ComputeFOIR(app.EMI, monthlyIncome)
	if err != nil {
		return nil, e.rejected("evaluateEligibility", err)
	}
	decision := e.policy.Decide(score, foir)

	from := app.Stage
	app.MonthlyIncome = monthlyIncome
	app.CreditScore = score
	app.FOIR = foir
	switch decision {
	case models.DecisionApproved:
		app.Stage = models.StageApproved
	case models.DecisionConditional:
		app.Stage = models.StageConditional
	default:
		app.Stage = models.StageRejected
	}
	app.UpdatedAt = e.clock()
	if err := e.store.UpdateApplication(ctx, app, from); err != nil {
		return nil, err
	}

	var agentMsg string
	switch decision {
	case models.DecisionApproved:
		agentMsg = fmt.Sprintf(
			"Congratulations! Your loan is approved. Credit score %d/900, FOIR %.1f%%. Say the word and I will issue your sanction letter.",
			score, foir,
		)
	case models.DecisionConditional:
		agentMsg = fmt.Sprintf(
			"Your loan is conditionally approved: the EMI takes up %.1f%% of your income, above our %.0f%% comfort line. You can pick a smaller amount or a longer tenure for a revised offer.",
			foir, e.policy.MaxFOIRPercent,
		)
	default:
		agentMsg = fmt.Sprintf(
			"Unfortunately we cannot approve your loan at this time: your credit score %d is below our minimum of %d. You may retry with a revised offer.",
			score, e.policy.MinCreditScore,
		)
	}

	if err := e.appendPair(ctx, applicationID,
		entry(models.ActorCustomer,
			fmt.Sprintf("My monthly income is Rs.%.0f", monthlyIncome),
			map[string]interface{}{"monthlyIncome": monthlyIncome}),
		entry(models.ActorUnderwriting, agentMsg, map[string]interface{}{
			"creditScore": score,
			"foir":        foir,
			"decision":    string(decision),
		}),
	); err != nil {
		return nil, err
	}

	metrics.EligibilityDecisions.WithLabelValues(string(decision)).Inc()
	e.finishTransition(ctx, applicationID, from, app.Stage, "evaluateEligibility")

	return &EligibilityResult{
		ApplicationID: applicationID,
		Stage:         app.Stage,
		Decision:      decision,
		CreditScore:   score,
		FOIR:          foir,
		Message:       agentMsg,
	}, nil
}

// ==========================
// Sanction
// ==========================

// Sanction renders the letter from the final approved terms, stores it
// on the application and closes the pipeline. Sanctioned is terminal.
func (e *Engine) Sanction(ctx context.Context, applicationID string) (*SanctionResult, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := requireStage(app, models.StageApproved); err != nil {
		return nil, e.rejected("sanction", err)
	}

	customer, err := e.store.GetCustomerByID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	doc, err := e.letters.Render(letter.Snapshot{
		ApplicationID: app.ApplicationID,
		ApplicantName: customer.Name,
		Principal:     int64(app.RequestedAmount),
		TenureMonths:  app.TenureMonths,
		EMI:           app.EMI,
		TotalPayable:  app.TotalPayable(),
		InterestRate:  app.InterestRate,
		CreditScore:   app.CreditScore,
	}, now)
	if err != nil {
		return nil, err
	}

	from := app.Stage
	app.SanctionLetter = doc
	app.Stage = models.StageSanctioned
	app.UpdatedAt = now
	if err := e.store.UpdateApplication(ctx, app, from); err != nil {
		return nil, err
	}

	agentMsg := "Your sanction letter is ready. Funds will be disbursed to your registered account within 24 hours of final acceptance. Thank you for choosing LoanWise."

	if err := e.appendPair(ctx, applicationID,
		entry(models.ActorCustomer, "Please issue my sanction letter.", nil),
		entry(models.ActorSanction, agentMsg, map[string]interface{}{
			"stage":        string(models.StageSanctioned),
			"validityDays": letter.ValidityDays,
		}),
	); err != nil {
		return nil, err
	}

	e.finishTransition(ctx, applicationID, from, app.Stage, "sanction")

	e.notifier.SanctionIssued(ctx, notify.Sanction{
		ApplicationID: app.ApplicationID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		LetterHTML:    doc,
		Principal:     int64(app.RequestedAmount),
		EMI:           app.EMI,
	})

	return &SanctionResult{
		ApplicationID: applicationID,
		Stage:         app.Stage,
		Letter:        doc,
		Message:       agentMsg,
	}, nil
}

// ==========================
// GetApplication
// ==========================

// GetApplication assembles the read model: application, customer and
// full transcript. Reads go through the snapshot cache when one is
// configured; a read never changes state.
func (e *Engine) GetApplication(ctx context.Context, applicationID string) (*models.ApplicationSnapshot, error) {
	if e.cache != nil {
		if snap := e.cache.Get(ctx, applicationID); snap != nil {
			return snap, nil
		}
	}

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	customer, err := e.store.GetCustomerByID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}
	transcript, err := e.store.ListTranscript(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	snap := &models.ApplicationSnapshot{
		Application: *app,
		Customer:    *customer,
		Transcript:  transcript,
	}
	if e.cache != nil {
		e.cache.Put(ctx, snap)
	}
	return snap, nil
}

// ==========================
// Helpers
// ==========================

type transcriptDraft struct {
	actor    models.ActorRole
	content  string
	metadata map[string]interface{}
}

func entry(actor models.ActorRole, content string, metadata map[string]interface{}) transcriptDraft {
	return transcriptDraft{actor: actor, content: content, metadata: metadata}
}

// appendPair writes the customer/agent entry pair for one transition.
func (e *Engine) appendPair(ctx context.Context, applicationID string, customer, agent transcriptDraft) error {
	now := e.clock()
	for _, d := range []transcriptDraft{customer, agent} {
		rec := &models.TranscriptEntry{
			ApplicationID: applicationID,
			Actor:         d.actor,
			Content:       d.content,
			Metadata:      d.metadata,
			CreatedAt:     now,
		}
		if err := e.store.AppendTranscript(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// finishTransition records metrics and drops the cached snapshot after
// a state change has been committed.
func (e *Engine) finishTransition(ctx context.Context, applicationID string, from, to models.Stage, operation string) {
	metrics.StageTransitions.WithLabelValues(string(from), string(to)).Inc()
	if e.cache != nil {
		e.cache.Invalidate(ctx, applicationID)
	}
	e.logger.Info("stage transition", map[string]interface{}{
		"applicationId": applicationID,
		"operation":     operation,
		"from":          string(from),
		"to":            string(to),
	})
}

// rejected counts a refused transition attempt before surfacing it.
func (e *Engine) rejected(operation string, err error) error {
	metrics.TransitionsRejected.WithLabelValues(operation, string(apperrors.KindOf(err))).Inc()
	return err
}

func validatePhone(phone string) error {
	if len(phone) != 10 {
		return apperrors.NewValidationError("phone must be exactly 10 digits")
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return apperrors.NewValidationError("phone must contain only digits")
		}
	}
	return nil
}

func validateProfile(in ProfileInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperrors.NewValidationError("name is required")
	case strings.TrimSpace(in.DOB) == "":
		return apperrors.NewValidationError("dob is required")
	case strings.TrimSpace(in.Email) == "":
		return apperrors.NewValidationError("email is required")
	case strings.TrimSpace(in.Address) == "":
		return apperrors.NewValidationError("address is required")
	case in.Income <= 0:
		return apperrors.NewValidationError("income must be positive")
	}
	return nil
}

// maskAadhar keeps only the last four digits in transcript content.
func maskAadhar(aadhar string) string {
	if len(aadhar) <= 4 {
		return aadhar
	}
	return strings.Repeat("X", len(aadhar)-4) + aadhar[len(aadhar)-4:]
}

func customerSnapshot(c *models.Customer) CustomerSnapshot {
	return CustomerSnapshot{
		Phone:            c.Phone,
		Name:             c.Name,
		Email:            c.Email,
		PreApprovedLimit: c.PreApprovedLimit,
		PreApprovedRate:  c.PreApprovedRate,
	}
}

// internal/letter/renderer.go

// Package letter renders the sanction letter for an approved loan. The
// renderer is pure: given the same snapshot and timestamp it always
// produces the same document.
package letter

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Snapshot is the frozen set of final terms a letter is rendered from.
// It is captured at sanction time and never re-read from storage.
type Snapshot struct {
	ApplicationID string
	ApplicantName string
	Principal     int64
	TenureMonths  int
	EMI           int64
	TotalPayable  int64
	InterestRate  float64
	CreditScore   int
}

type letterData struct {
	Snapshot
	GeneratedAt  string
	ValidityDays int
}

const letterTemplate = `<div class="letter-box">
  <div class="letter-header">
    <div class="letter-title">LOAN SANCTION LETTER</div>
    <div class="letter-ref">Application ID: {{.ApplicationID}}</div>
  </div>
  <div class="letter-content">
    <strong>Dear {{.ApplicantName}},</strong>
    <p>We are pleased to inform you that your loan application has been <strong>APPROVED</strong>.</p>
    <table class="letter-table">
      <tr><td>Loan Amount:</td><td><strong>&#8377;{{.Principal}}</strong></td></tr>
      <tr><td>Interest Rate:</td><td><strong>{{.InterestRate}}% p.a.</strong></td></tr>
      <tr><td>Tenure:</td><td><strong>{{.TenureMonths}} months</strong></td></tr>
      <tr><td>Monthly EMI:</td><td><strong>&#8377;{{.EMI}}</strong></td></tr>
      <tr><td>Total Amount:</td><td><strong>&#8377;{{.TotalPayable}}</strong></td></tr>
      <tr><td>Credit Score:</td><td><strong>{{.CreditScore}}/900</strong></td></tr>
    </table>
    <div class="letter-terms">
      <strong>Terms &amp; Conditions:</strong><br>
      &bull; This sanction is valid for {{.ValidityDays}} days from the date of this letter<br>
      &bull; Funds will be disbursed within 24 hours of final approval<br>
      &bull; Prepayment allowed without penalty<br>
      &bull; Rate lock for entire tenure<br>
      &bull; No hidden charges or processing fees
    </div>
    <p>To proceed, please accept the terms and complete the final verification.</p>
    <strong>LoanWise Team</strong><br>
    <span class="letter-date">Generated on: {{.GeneratedAt}}</span>
  </div>
</div>
`

// ValidityDays is the fixed sanction validity window.
const ValidityDays = 30

// Renderer formats sanctioned-loan terms into a self-contained document.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("sanction-letter").Parse(letterTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse letter template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the letter document. It never mutates the snapshot.
func (r *Renderer) Render(snap Snapshot, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	data := letterData{
		Snapshot:     snap,
		GeneratedAt:  generatedAt.UTC().Format("02-01-2006 15:04:05"),
		ValidityDays: ValidityDays,
	}
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render letter: %w", err)
	}
	return buf.String(), nil
}

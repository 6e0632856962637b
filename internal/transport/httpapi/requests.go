// internal/transport/httpapi/requests.go
package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Each operation validates twice: the raw body against a JSON Schema
// (shape, types, unknown fields), then the decoded struct against the
// field rules below. Validation failures never touch application state.

type startRequest struct {
	Phone string `json:"phone"`
}

func (r startRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.Length(10, 10), is.Digit),
	)
}

type profileRequest struct {
	Name    string  `json:"name"`
	DOB     string  `json:"dob"`
	Email   string  `json:"email"`
	Address string  `json:"address"`
	Income  float64 `json:"income"`
}

func (r profileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.DOB, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Address, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Income, validation.Required, validation.Min(0.01)),
	)
}

type emiRequest struct {
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenureMonths"`
}

func (r emiRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required, validation.Min(1.0)),
		validation.Field(&r.TenureMonths, validation.Required, validation.Min(1), validation.Max(360)),
	)
}

type kycRequest struct {
	Aadhar string `json:"aadhar"`
	PAN    string `json:"pan"`
}

func (r kycRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Aadhar, validation.Required),
		validation.Field(&r.PAN, validation.Required),
	)
}

type eligibilityRequest struct {
	MonthlyIncome float64 `json:"monthlyIncome"`
}

func (r eligibilityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MonthlyIncome, validation.Required, validation.Min(0.01)),
	)
}

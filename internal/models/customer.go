// internal/models/customer.go
package models

import "time"

// Customer holds the pre-approved offer associated with a phone number.
// A placeholder record (derived name/email) is created on first contact
// and overwritten once real profile details are collected.
type Customer struct {
	ID               string    `json:"id"`
	Phone            string    `json:"phone"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	DOB              string    `json:"dob,omitempty"`
	Address          string    `json:"address,omitempty"`
	Aadhar           string    `json:"aadhar,omitempty"`
	PAN              string    `json:"pan,omitempty"`
	PreApprovedLimit float64   `json:"preApprovedLimit"`
	PreApprovedRate  float64   `json:"preApprovedRate"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

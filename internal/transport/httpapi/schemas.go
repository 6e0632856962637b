// internal/transport/httpapi/schemas.go
package httpapi

import schema "loanwise-engine/internal/common/validation"

// Boundary schemas, compiled once at package init. Unknown fields are
// rejected so a misspelled key fails loudly instead of silently
// dropping data.

var startSchema = schema.MustCompile(map[string]interface{}{
	"type":                 "object",
	"required":             []string{"phone"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"phone": map[string]interface{}{"type": "string"},
	},
})

var profileSchema = schema.MustCompile(map[string]interface{}{
	"type":                 "object",
	"required":             []string{"name", "dob", "email", "address", "income"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"name":    map[string]interface{}{"type": "string"},
		"dob":     map[string]interface{}{"type": "string"},
		"email":   map[string]interface{}{"type": "string"},
		"address": map[string]interface{}{"type": "string"},
		"income":  map[string]interface{}{"type": "number"},
	},
})

var emiSchema = schema.MustCompile(map[string]interface{}{
	"type":                 "object",
	"required":             []string{"amount", "tenureMonths"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"amount":       map[string]interface{}{"type": "number"},
		"tenureMonths": map[string]interface{}{"type": "integer"},
	},
})

var kycSchema = schema.MustCompile(map[string]interface{}{
	"type":                 "object",
	"required":             []string{"aadhar", "pan"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"aadhar": map[string]interface{}{"type": "string"},
		"pan":    map[string]interface{}{"type": "string"},
	},
})

var eligibilitySchema = schema.MustCompile(map[string]interface{}{
	"type":                 "object",
	"required":             []string{"monthlyIncome"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"monthlyIncome": map[string]interface{}{"type": "number"},
	},
})

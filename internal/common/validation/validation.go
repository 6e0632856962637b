// internal/common/validation/validation.go

// Package validation checks raw request bodies against JSON Schemas at
// the transport boundary, before any typed decoding runs.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	apperrors "loanwise-engine/internal/common/errors"
)

// Schema is a compiled JSON Schema. Compile once at startup, validate
// per request.
type Schema struct {
	compiled *gojsonschema.Schema
}

// MustCompile compiles a schema definition and panics on a malformed
// one. Schemas are package constants, so a failure here is a
// programming error caught at startup.
func MustCompile(definition map[string]interface{}) *Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return &Schema{compiled: compiled}
}

// Validate checks a raw JSON body against the schema. All violations
// are collected into a single validation error.
func (s *Schema) Validate(body []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.NewValidationError("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return apperrors.NewValidationErrorf("request validation failed: %v", errs)
}

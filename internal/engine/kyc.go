// internal/engine/kyc.go
package engine

import "strings"

// DocumentCheck validates the two KYC identity documents. The default
// implementation is a format-only surrogate for real document
// verification; swap it out when a provider integration lands.
type DocumentCheck interface {
	Verify(aadhar, pan string) bool
}

// FormatDocumentCheck accepts an aadhaar of exactly 12 numeric
// characters and a PAN of exactly 10 characters ending in "P".
type FormatDocumentCheck struct{}

func (FormatDocumentCheck) Verify(aadhar, pan string) bool {
	return validAadhar(aadhar) && validPAN(pan)
}

func validAadhar(aadhar string) bool {
	if len(aadhar) != 12 {
		return false
	}
	for _, c := range aadhar {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validPAN(pan string) bool {
	return len(pan) == 10 && strings.HasSuffix(strings.ToUpper(pan), "P")
}

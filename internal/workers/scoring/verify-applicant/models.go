// internal/workers/scoring/verify-applicant/models.go
package verifyapplicant

type Input struct {
	Name          string `json:"name"`
	Aadhaar       string `json:"aadhaar"`
	Phone         string `json:"phone"`
	AccountNumber string `json:"accountNumber"`
}

type Output struct {
	IdentityVerified bool `json:"identityVerified"`
}

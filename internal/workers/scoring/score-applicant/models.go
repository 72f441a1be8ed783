// internal/workers/scoring/score-applicant/models.go
package scoreapplicant

import "kredmitra/internal/models"

// Input is the applicant to score. Mobile, when set, names the account the
// result is stored on. Channel defaults to webapp.
type Input struct {
	UserData models.UserData `json:"userData"`
	Mobile   string          `json:"mobile,omitempty"`
	Channel  string          `json:"channel,omitempty"`
}

type Output struct {
	Application *models.Application `json:"application"`
	FinalScore  int                 `json:"finalScore"`
	FraudRisk   string              `json:"fraudRisk"`
	LoanCount   int                 `json:"loanCount"`
}

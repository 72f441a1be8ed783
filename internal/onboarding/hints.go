package onboarding

import (
	"strings"

	"kredmitra/internal/models"
)

// Hints marks which topics a free-text financial statement already covers.
type Hints struct {
	Income   bool `json:"income"`
	Expenses bool `json:"expenses"`
	Savings  bool `json:"savings"`
}

var hintKeywords = struct {
	income, expenses, savings []string
}{
	income:   []string{"income", "earn", "salary", "profit"},
	expenses: []string{"rent", "food", "bills", "spend", "expense"},
	savings:  []string{"save", "saving", "investment", "deposit"},
}

// StatementHints checks text case-insensitively for each topic's keywords.
func StatementHints(text string) Hints {
	lower := strings.ToLower(text)
	return Hints{
		Income:   containsAny(lower, hintKeywords.income),
		Expenses: containsAny(lower, hintKeywords.expenses),
		Savings:  containsAny(lower, hintKeywords.savings),
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

const (
	ExampleFarmer = "farmer"
	ExampleGig    = "gig"
)

// Examples returns the prefill data for one demo applicant. kind accepts
// "farmer" or "gig" as well as the matching profession names.
func Examples(kind string) (*models.UserData, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ExampleFarmer, strings.ToLower(models.ProfessionFarmer):
		return &models.UserData{
			Name:          "Ramesh Kumar",
			Profession:    models.ProfessionFarmer,
			Location:      "Nalegaon, Maharashtra",
			Pincode:       "413521",
			IncomeType:    "Seasonal/Irregular",
			Aadhaar:       "123412341234",
			Phone:         "9876543210",
			AccountNumber: "112233445566",
			BankName:      "State Bank of India",
			IFSCCode:      "SBIN0000300",
		}, true
	case ExampleGig, strings.ToLower(models.ProfessionGigWorker):
		return &models.UserData{
			Name:          "Priya Singh",
			Profession:    models.ProfessionGigWorker,
			Location:      "Bengaluru, Karnataka",
			Pincode:       "560001",
			IncomeType:    "Daily",
			Aadhaar:       "432143214321",
			Phone:         "9876543211",
			AccountNumber: "998877665544",
			BankName:      "HDFC Bank",
			IFSCCode:      "HDFC0000001",
		}, true
	}
	return nil, false
}

// internal/models/application.go
package models

import "strings"

// UserData is one applicant's submission, from either the web onboarding flow
// or the USSD simulator.
type UserData struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Aadhaar    string `json:"aadhaar"`
	Profession string `json:"profession"`
	Location   string `json:"location"`
	Pincode    string `json:"pincode"`
	IncomeType string `json:"incomeType"`

	Consent            bool                 `json:"consent"`
	OTPVerified        bool                 `json:"otpVerified,omitempty"`
	FinancialStatement string               `json:"financialStatement"`
	StatementImage     *Document            `json:"financialStatementImage,omitempty"`
	Documents          []AdditionalDocument `json:"additionalDocuments,omitempty"`
	TransactionLedger  string               `json:"digitizedLedgerText,omitempty"`

	StructuredData         *StructuredData       `json:"structuredData,omitempty"`
	PsychometricResponses  map[string]string     `json:"psychometricResponses,omitempty"`
	ClarificationResponses []ClarificationAnswer `json:"clarificationResponses,omitempty"`
	ReferenceContact       *Reference            `json:"referenceContact,omitempty"`
	AlternativeData        *AlternativeData      `json:"alternativeData,omitempty"`

	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IFSCCode      string `json:"ifscCode,omitempty"`
}

// Document is a base64 payload with its MIME type.
type Document struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type AdditionalDocument struct {
	Name               string `json:"name"`
	MimeType           string `json:"mimeType"`
	Data               string `json:"data"`
	VerificationResult string `json:"verificationResult,omitempty"`
	Category           string `json:"category"` // Identity | Work | Asset | Other
}

type ClarificationAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Reference struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

// AlternativeData holds the self-reported, profession-specific answers.
// Zero values mean "not provided".
type AlternativeData struct {
	HasSavingsHabit  *bool    `json:"hasSavingsHabit,omitempty"`
	LandSizeAcres    *float64 `json:"landSizeAcres,omitempty"`
	CropTypes        string   `json:"cropTypes,omitempty"`
	AvgDailyEarnings *float64 `json:"avgDailyEarnings,omitempty"`
	PrimaryPlatform  string   `json:"primaryPlatform,omitempty"`
	InventoryValue   *float64 `json:"inventoryValue,omitempty"`
	AvgMonthlyProfit *float64 `json:"avgMonthlyProfit,omitempty"`
	BusinessType     string   `json:"businessType,omitempty"`
	GroupName        string   `json:"groupName,omitempty"`
	UsesDigitalPay   *bool    `json:"usesDigitalPayments,omitempty"`
}

// HasPsychometric reports whether any psychometric question was answered.
func (u *UserData) HasPsychometric() bool {
	return len(u.PsychometricResponses) > 0
}

// IsFarmer reports whether geospatial yield analysis applies to the applicant.
func (u *UserData) IsFarmer() bool {
	return strings.Contains(strings.ToLower(u.Profession), "farmer")
}

// Professions offered by onboarding. The USSD menu omits SHG Member.
const (
	ProfessionFarmer    = "Small Farmer"
	ProfessionGigWorker = "Gig Worker"
	ProfessionKirana    = "Kirana Shop Owner"
	ProfessionSHG       = "SHG Member"
	ProfessionMicro     = "Micro-Entrepreneur"
)

var Professions = []string{ProfessionFarmer, ProfessionGigWorker, ProfessionKirana, ProfessionSHG, ProfessionMicro}

var IncomeTypes = []string{"Daily", "Weekly", "Monthly", "Seasonal/Irregular"}

package onboarding

import (
	"encoding/json"
	"strings"

	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
)

const (
	CodeRequired      = "REQUIRED"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeOTPRequired   = "OTP_REQUIRED"
	CodeConsent       = "CONSENT_REQUIRED"
)

// Field messages shown next to the form inputs.
const (
	MsgAadhaar       = "Aadhaar must be exactly 12 digits."
	MsgPincode       = "Pincode must be exactly 6 digits."
	MsgPhone         = "Phone number must be exactly 10 digits."
	MsgIFSC          = "Please enter a valid 11-character IFSC code."
	MsgBankName      = "Bank name is required."
	MsgAccountNumber = "Account number is required."
	MsgNumbersOnly   = "Please enter numbers only."
	MsgOTP           = "Please verify your phone number with the OTP."
	MsgConsent       = "Consent is required to continue."
)

func formSchemaDocument() string {
	professions, _ := json.Marshal(models.Professions)
	incomeTypes, _ := json.Marshal(models.IncomeTypes)
	return `{
	"type": "object",
	"required": ["name", "profession", "incomeType", "location", "consent"],
	"properties": {
		"name":       {"type": "string", "minLength": 1},
		"profession": {"type": "string", "enum": ` + string(professions) + `},
		"incomeType": {"type": "string", "enum": ` + string(incomeTypes) + `},
		"location":   {"type": "string", "minLength": 1},
		"consent":    {"type": "boolean"},
		"psychometricResponses": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"additionalDocuments": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "mimeType", "data"],
				"properties": {
					"category": {"enum": ["", "Identity", "Work", "Asset", "Other"]}
				}
			}
		}
	}
}`
}

var formSchema = mustCompile(formSchemaDocument())

func mustCompile(doc string) *validation.Schema {
	s, err := validation.CompileSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the submission structurally against the form schema and
// then applies the identity, bank and OTP rules.
func Validate(user *models.UserData) *validation.ValidationResult {
	result, err := formSchema.Validate(user)
	if err != nil {
		result = &validation.ValidationResult{Valid: true}
		result.Add("(root)", CodeInvalidFormat, err.Error())
	}

	if !validation.ValidateAadhaar(user.Aadhaar) {
		result.Add("aadhaar", CodeInvalidFormat, MsgAadhaar)
	}
	if !validation.ValidatePincode(user.Pincode) {
		result.Add("pincode", CodeInvalidFormat, MsgPincode)
	}
	if !validation.ValidateMobile(user.Phone) {
		result.Add("phone", CodeInvalidFormat, MsgPhone)
	}
	if strings.TrimSpace(user.BankName) == "" {
		result.Add("bankName", CodeRequired, MsgBankName)
	}
	switch acct := strings.TrimSpace(user.AccountNumber); {
	case acct == "":
		result.Add("accountNumber", CodeRequired, MsgAccountNumber)
	case validation.DigitsOnly(acct, 0) != acct:
		result.Add("accountNumber", CodeInvalidFormat, MsgNumbersOnly)
	}
	if !validation.ValidateIFSC(user.IFSCCode) {
		result.Add("ifscCode", CodeInvalidFormat, MsgIFSC)
	}
	if !user.OTPVerified {
		result.Add("otp", CodeOTPRequired, MsgOTP)
	}
	if !user.Consent && !result.HasErrors("consent") {
		result.Add("consent", CodeConsent, MsgConsent)
	}
	return result
}

package ussd

import (
	"fmt"
	"strconv"
	"strings"

	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
)

// Step IDs. Clarification steps are generated as clarification_<i>.
const (
	StepName                  = "name"
	StepPhone                 = "phone"
	StepAadhaar               = "aadhaar"
	StepProfession            = "profession"
	StepFarmerQ2              = "farmer_q2"
	StepGigQ2                 = "gig_q2"
	StepKiranaQ2              = "kirana_q2"
	StepMicroQ3               = "micro_q3"
	StepStatementOptional     = "financialStatement_optional"
	StepStatement             = "financialStatement"
	StepAnalyzing             = "analyzing"
	StepPincode               = "pincode"
	StepIncomeType            = "incomeType"
	StepBankName              = "bankName"
	StepAccountNumber         = "accountNumber"
	StepIFSC                  = "ifscCode"
	StepSavingsHabit          = "savingsHabit"
	StepHasReference          = "hasReference"
	StepReferenceName         = "referenceName"
	StepReferenceRelationship = "referenceRelationship"
	StepQ1                    = "q1"

	clarificationPrefix = "clarification_"
)

// Screen copy.
const (
	MsgWelcome        = "Welcome. Please enter your full name."
	MsgAnalyzing      = "Analyzing your profile..."
	MsgEmptyInput     = "Input cannot be empty."
	MsgInvalidOption  = "Invalid selection."
	MsgProcessFailed  = "Could not process application. Please try again."
	MsgSessionEnded   = "Session ended. Thank you for using KredMitra."
	finalScoreMessage = "Thank you! Your final score is %d.\n\nReply 1 to view your detailed report."
)

type inputKind int

const (
	kindText inputKind = iota
	kindNumeric
	kindNumber
	kindOptions
)

var yesNo = []string{"Yes", "No"}

// Professions offered on the USSD menu.
var Professions = []string{
	models.ProfessionFarmer,
	models.ProfessionGigWorker,
	models.ProfessionKirana,
	models.ProfessionMicro,
}

var professionFollowUp = map[string]string{
	models.ProfessionFarmer:    StepFarmerQ2,
	models.ProfessionGigWorker: StepGigQ2,
	models.ProfessionKirana:    StepKiranaQ2,
	models.ProfessionMicro:     StepMicroQ3,
}

// PsychometricOptions answers "q1".
var PsychometricOptions = []string{
	"Use emergency savings",
	"Borrow from a friend",
	"Reduce other spending this month",
}

// step describes one screen. apply stores the normalized answer and returns
// the ID of the step that follows.
type step struct {
	prompt    string
	kind      inputKind
	maxLength int
	options   []string
	optional  bool
	apply     func(s *Session, value string) string
}

func (st step) render() string {
	if st.kind != kindOptions {
		return st.prompt
	}
	var b strings.Builder
	b.WriteString(st.prompt)
	for i, o := range st.options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, o)
	}
	return b.String()
}

func number(field func(*models.AlternativeData) **float64) func(s *Session, value string) string {
	return func(s *Session, value string) string {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			*field(s.alt()) = &v
		}
		return StepStatementOptional
	}
}

func boolPtr(b bool) *bool { return &b }

var steps = map[string]step{
	StepName: {
		prompt: MsgWelcome,
		apply: func(s *Session, v string) string {
			s.Data.Name = v
			return StepPhone
		},
	},
	StepPhone: {
		prompt: "Enter your 10-digit phone number.", kind: kindNumeric, maxLength: 10,
		apply: func(s *Session, v string) string {
			s.Data.Phone = v
			return StepAadhaar
		},
	},
	StepAadhaar: {
		prompt: "Enter your 12-digit Aadhaar number.", kind: kindNumeric, maxLength: 12,
		apply: func(s *Session, v string) string {
			s.Data.Aadhaar = v
			return StepProfession
		},
	},
	StepProfession: {
		prompt: "Select your profession:", kind: kindOptions, options: Professions,
		apply: func(s *Session, v string) string {
			s.Data.Profession = v
			return professionFollowUp[v]
		},
	},
	StepFarmerQ2: {
		prompt: "What is the size of your land (in acres)?", kind: kindNumber,
		apply: number(func(a *models.AlternativeData) **float64 { return &a.LandSizeAcres }),
	},
	StepGigQ2: {
		prompt: "What are your average daily earnings (in ₹)?", kind: kindNumber,
		apply: number(func(a *models.AlternativeData) **float64 { return &a.AvgDailyEarnings }),
	},
	StepKiranaQ2: {
		prompt: "What is the approximate value of your current inventory (in ₹)?", kind: kindNumber,
		apply: number(func(a *models.AlternativeData) **float64 { return &a.InventoryValue }),
	},
	StepMicroQ3: {
		prompt: "What is your average monthly profit (in ₹)?", kind: kindNumber,
		apply: number(func(a *models.AlternativeData) **float64 { return &a.AvgMonthlyProfit }),
	},
	StepStatementOptional: {
		prompt: "Would you like to share any extra financial details?", kind: kindOptions, options: yesNo,
		apply: func(s *Session, v string) string {
			if v == "Yes" {
				return StepStatement
			}
			return StepAnalyzing
		},
	},
	StepStatement: {
		prompt: "Please describe your financial situation.", optional: true,
		apply: func(s *Session, v string) string {
			s.Data.FinancialStatement = v
			return StepAnalyzing
		},
	},
	StepAnalyzing: {
		prompt: MsgAnalyzing,
	},
	StepPincode: {
		prompt: "Enter your 6-digit Pincode.", kind: kindNumeric, maxLength: 6,
		apply: func(s *Session, v string) string {
			s.Data.Pincode = v
			return StepIncomeType
		},
	},
	StepIncomeType: {
		prompt: "Select your income pattern:", kind: kindOptions, options: models.IncomeTypes,
		apply: func(s *Session, v string) string {
			s.Data.IncomeType = v
			return StepBankName
		},
	},
	StepBankName: {
		prompt: "Enter your bank name.",
		apply: func(s *Session, v string) string {
			s.Data.BankName = v
			return StepAccountNumber
		},
	},
	StepAccountNumber: {
		prompt: "Enter your bank account number.", kind: kindNumeric,
		apply: func(s *Session, v string) string {
			s.Data.AccountNumber = v
			return StepIFSC
		},
	},
	StepIFSC: {
		prompt: "Enter your bank's IFSC code.",
		apply: func(s *Session, v string) string {
			s.Data.IFSCCode = strings.ToUpper(v)
			return StepSavingsHabit
		},
	},
	StepSavingsHabit: {
		prompt: "Do you have a regular savings habit?", kind: kindOptions, options: yesNo,
		apply: func(s *Session, v string) string {
			s.alt().HasSavingsHabit = boolPtr(v == "Yes")
			return StepHasReference
		},
	},
	StepHasReference: {
		prompt: "Can you provide a community reference?", kind: kindOptions, options: yesNo,
		apply: func(s *Session, v string) string {
			if v == "Yes" {
				return StepReferenceName
			}
			return StepQ1
		},
	},
	StepReferenceName: {
		prompt: "Enter reference's name.",
		apply: func(s *Session, v string) string {
			s.Data.ReferenceContact = &models.Reference{Name: v}
			return StepReferenceRelationship
		},
	},
	StepReferenceRelationship: {
		prompt: "What is your relationship with them?",
		apply: func(s *Session, v string) string {
			if s.Data.ReferenceContact == nil {
				s.Data.ReferenceContact = &models.Reference{}
			}
			s.Data.ReferenceContact.Relationship = v
			return StepQ1
		},
	},
	StepQ1: {
		prompt: "An unexpected expense of ₹2000 comes up. What do you do?", kind: kindOptions, options: PsychometricOptions,
		apply: func(s *Session, v string) string {
			if s.Data.PsychometricResponses == nil {
				s.Data.PsychometricResponses = map[string]string{}
			}
			s.Data.PsychometricResponses[StepQ1] = v
			return ""
		},
	},
}

func clarificationStep(i int) string {
	return clarificationPrefix + strconv.Itoa(i)
}

func clarificationIndex(id string) (int, bool) {
	if !strings.HasPrefix(id, clarificationPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(id, clarificationPrefix))
	return i, err == nil
}

// lookup resolves static steps and the clarification questions generated
// for this session.
func (s *Session) lookup(id string) (step, bool) {
	if st, ok := steps[id]; ok {
		return st, true
	}
	i, ok := clarificationIndex(id)
	if !ok || i < 0 || i >= len(s.Clarifications) {
		return step{}, false
	}
	return step{
		prompt: s.Clarifications[i],
		apply: func(s *Session, v string) string {
			s.Data.ClarificationResponses = append(s.Data.ClarificationResponses,
				models.ClarificationAnswer{Question: s.Clarifications[i], Answer: v})
			if i+1 < len(s.Clarifications) {
				return clarificationStep(i + 1)
			}
			return StepPincode
		},
	}, true
}

// normalize applies the input rules of st. It returns the stored value or
// the message to show when the input is rejected.
func (st step) normalize(input string) (string, string) {
	value := strings.TrimSpace(input)
	switch st.kind {
	case kindNumeric, kindNumber:
		// keypad entry: separators, currency signs and decimal points are
		// dropped, so "2.5" acres is read as 25
		value = validation.DigitsOnly(value, st.maxLength)
	}

	if value == "" {
		if st.optional {
			return "", ""
		}
		return "", MsgEmptyInput
	}

	if st.kind == kindOptions {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > len(st.options) {
			return "", MsgInvalidOption
		}
		return st.options[n-1], ""
	}
	return value, ""
}

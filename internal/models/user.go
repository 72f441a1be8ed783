package models

import "time"

type AppStep string

const (
	StepOnboarding          AppStep = "ONBOARDING"
	StepProcessing          AppStep = "PROCESSING"
	StepScoreResult         AppStep = "SCORE_RESULT"
	StepCommunityValidation AppStep = "COMMUNITY_VALIDATION"
	StepRepaymentDashboard  AppStep = "REPAYMENT_DASHBOARD"
)

// JourneyStep is a stage of the web onboarding flow.
type JourneyStep string

const (
	JourneyInfo                JourneyStep = "INFO"
	JourneyConsent             JourneyStep = "CONSENT"
	JourneyProfessionQuestions JourneyStep = "PROFESSION_QUESTIONS"
	JourneyDataInput           JourneyStep = "DATA_INPUT"
	JourneyClarification       JourneyStep = "CLARIFICATION"
	JourneyPsychometric        JourneyStep = "PSYCHOMETRIC"
)

const (
	ChannelWebApp = "webapp"
	ChannelUSSD   = "ussd"
)

const (
	LoanNone      = "None"
	LoanPending   = "Pending"
	LoanActive    = "Active"
	LoanCompleted = "Completed"
	LoanRejected  = "Rejected"
)

const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

type WellnessBadge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Achieved    bool   `json:"achieved"`
}

const (
	BadgeOnboarding    = "onboarding"
	BadgeApproval      = "approval"
	BadgeFirstPayment  = "first_payment"
	BadgeHalfway       = "halfway"
	BadgeFullRepayment = "full_repayment"
)

var badgeCatalog = []WellnessBadge{
	{ID: BadgeOnboarding, Title: "Onboarding Complete", Description: "You successfully shared your financial story."},
	{ID: BadgeApproval, Title: "First Loan Approved", Description: "You received your first set of loan options."},
	{ID: BadgeFirstPayment, Title: "First Payment Made", Description: "You have made your first repayment on time."},
	{ID: BadgeHalfway, Title: "Halfway There!", Description: "You have repaid 50% of your loan."},
	{ID: BadgeFullRepayment, Title: "Loan Repaid!", Description: "Congratulations! You have fully repaid your loan."},
}

// Badges returns a fresh copy of the badge catalog with the given IDs
// marked achieved.
func Badges(achieved ...string) []WellnessBadge {
	out := make([]WellnessBadge, len(badgeCatalog))
	copy(out, badgeCatalog)
	for i := range out {
		for _, id := range achieved {
			if out[i].ID == id {
				out[i].Achieved = true
			}
		}
	}
	return out
}

// Achieve marks badge id achieved in place. Unknown IDs are ignored.
func Achieve(badges []WellnessBadge, id string) {
	for i := range badges {
		if badges[i].ID == id {
			badges[i].Achieved = true
		}
	}
}

type ChatMessage struct {
	Role string `json:"role"` // user | model
	Text string `json:"text"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Feedback struct {
	Text      string `json:"text"`
	Category  string `json:"category"`
	Sentiment string `json:"sentiment"` // Positive | Negative | Neutral
	Summary   string `json:"summary,omitempty"`
	Date      string `json:"date,omitempty"`
}

type CrisisInfo struct {
	Description  string   `json:"description,omitempty"`
	AISuggestion string   `json:"aiSuggestion,omitempty"`
	Options      []string `json:"options,omitempty"`
}

// UserRecord is the persisted account plus the latest application state.
type UserRecord struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DOB          string `json:"dob"`
	Mobile       string `json:"mobile"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`

	CreditScore  int      `json:"creditScore"`
	RiskLevel    string   `json:"riskLevel"`
	Status       string   `json:"status"`
	LastActivity string   `json:"lastActivity"`
	RiskFlags    []string `json:"riskFlags"`

	SimAgeDays       int     `json:"simAgeDays"`
	RechargesLast6M  int     `json:"rechargesLast6M"`
	AvgTopUp         float64 `json:"avgTopUp"`
	RechargeVariance float64 `json:"rechargeVariance"`
	MobilityIndex    float64 `json:"mobilityIndex"`
	SimSwaps         int     `json:"simSwaps"`

	AppStep AppStep `json:"appStep"`
	Channel string  `json:"channel"`

	LoanStatus  string  `json:"loanStatus"`
	LoanAmount  float64 `json:"loanAmount"`
	LoanRepaid  float64 `json:"loanRepaid"`
	Pincode     string  `json:"pincode"`
	DueDate     string  `json:"dueDate,omitempty"`
	DaysOverdue int     `json:"daysOverdue"`

	InCrisis   bool       `json:"inCrisis"`
	CrisisInfo CrisisInfo `json:"crisisInfo"`

	WellnessBadges []WellnessBadge `json:"wellnessBadges"`
	Feedback       []Feedback      `json:"feedback"`
	ChatHistory    []ChatMessage   `json:"chatHistory"`

	Application  *Application  `json:"application,omitempty"`
	SelectedLoan *SelectedLoan `json:"selectedLoan,omitempty"`
}

// FullName joins first and last name.
func (u *UserRecord) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Touch stamps LastActivity with today's date.
func (u *UserRecord) Touch(now time.Time) {
	u.LastActivity = now.Format("2006-01-02")
}

// RecordApplication stores a scored application as the latest one and moves
// the journey to the score result.
func (u *UserRecord) RecordApplication(app *Application, now time.Time) {
	u.Application = app
	u.AppStep = StepScoreResult
	u.Channel = app.Channel
	if app.ScoreData != nil {
		u.CreditScore = app.ScoreData.FinalScore
		u.RiskLevel = app.ScoreData.FraudRisk
	}
	if app.UserData != nil && app.UserData.Pincode != "" {
		u.Pincode = app.UserData.Pincode
	}
	u.Touch(now)
}

// Public returns a copy without the password hash.
func (u *UserRecord) Public() UserRecord {
	c := *u
	c.PasswordHash = ""
	return c
}

// Session is the authenticated principal behind a bearer token.
type Session struct {
	Token     string    `json:"token"`
	Mobile    string    `json:"mobile,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

package models

type StructuredData struct {
	IncomeRegularity         string `json:"incomeRegularity"`
	RepaymentHistory         string `json:"repaymentHistory"`
	FinancialShockIndicators string `json:"financialShockIndicators"`
	BehavioralMetrics        string `json:"behavioralMetrics"`
	LifeEventSignals         string `json:"lifeEventSignals"`
}

// UniformStructuredData fills every field with the same marker text.
func UniformStructuredData(v string) *StructuredData {
	return &StructuredData{
		IncomeRegularity:         v,
		RepaymentHistory:         v,
		FinancialShockIndicators: v,
		BehavioralMetrics:        v,
		LifeEventSignals:         v,
	}
}

type GeospatialAnalysis struct {
	ProspectiveYieldScore int    `json:"prospectiveYieldScore"` // 0-100
	Rationale             string `json:"rationale"`
}

// ScoreData is the trust profile returned by the scoring model. All four
// scores are on the 300-850 scale.
type ScoreData struct {
	FinalScore            int    `json:"finalScore"`
	ConsistencyScore      int    `json:"consistencyScore"`
	CommunityTrustScore   int    `json:"communityTrustScore"`
	ResilienceScore       int    `json:"resilienceScore"`
	ScoreRationale        string `json:"scoreRationale"`
	FraudRisk             string `json:"fraudRisk"` // Low | Medium | High
	FraudRationale        string `json:"fraudRationale"`
	VerificationStep      string `json:"verificationStep"`
	DynamicRiskAdjustment string `json:"dynamicRiskAdjustment,omitempty"`
	PsychometricAnalysis  string `json:"psychometricAnalysis,omitempty"`

	GeospatialAnalysis *GeospatialAnalysis `json:"geospatialAnalysis,omitempty"`
	StructuredData     *StructuredData     `json:"structuredData,omitempty"`
}

const (
	MinScore = 300
	MaxScore = 850
)

// ClampScore bounds s to the 300-850 range.
func ClampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}

type LoanOption struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Repayment   string  `json:"repayment"`
	Description string  `json:"description"`
}

// SelectedLoan is the loan an applicant accepted, tracked through repayment.
type SelectedLoan struct {
	LoanOption
	Repaid  float64         `json:"repaid"`
	Badges  []WellnessBadge `json:"badges"`
	DueDate string          `json:"dueDate,omitempty"`
}

// Progress returns repaid/amount in [0, 1].
func (l *SelectedLoan) Progress() float64 {
	if l.Amount <= 0 {
		return 0
	}
	p := l.Repaid / l.Amount
	if p > 1 {
		return 1
	}
	return p
}

// Application is the outcome of one scoring run.
type Application struct {
	Channel            string              `json:"channel"`
	UserData           *UserData           `json:"userData"`
	ScoreData          *ScoreData          `json:"scoreData"`
	LoanOptions        []LoanOption        `json:"loanOptions"`
	IntegratedProfile  *IntegratedProfile  `json:"integratedProfile,omitempty"`
	GeospatialAnalysis *GeospatialAnalysis `json:"geospatialAnalysis,omitempty"`
}

package models

type ScoreSimulation struct {
	NewScore  int    `json:"newScore"`
	Rationale string `json:"rationale"`
}

type FeedbackAnalysis struct {
	Category  string `json:"category"`
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
}

type BudgetCategory struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type SavingsStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type SavingsPlan struct {
	Goal   string        `json:"goal"`
	Amount float64       `json:"amount"`
	Steps  []SavingsStep `json:"steps"`
}

// DiaryEntry is one voice-diary note with its model-assigned sentiment.
type DiaryEntry struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
	Sentiment  string `json:"sentiment"` // Positive | Negative | Neutral
}

type DiaryAnalysis struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

type PredictiveIntervention struct {
	NeedsHelp  bool   `json:"needsHelp"`
	Suggestion string `json:"suggestion"`
}

type ReschedulingOptions struct {
	Intro   string   `json:"intro"`
	Options []string `json:"options"`
}

const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

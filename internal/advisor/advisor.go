// Package advisor holds every prompt KredMitra sends to the generative
// model, the response schemas that constrain the answers and the static
// fallback copy used when a call fails.
package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"kredmitra/internal/common/llm"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/models"
)

// Operation names, used as metric labels and in logs.
const (
	OpExtractStructuredData  = "extract_structured_data"
	OpOnboardingHelp         = "onboarding_help"
	OpVerifyDocument         = "verify_document"
	OpVernacularOCR          = "vernacular_ocr"
	OpConsentExplanation     = "consent_explanation"
	OpClarifyingQuestions    = "clarifying_questions"
	OpAnalyzeProfile         = "analyze_profile"
	OpLoanOptions            = "loan_options"
	OpGeospatialAnalysis     = "geospatial_analysis"
	OpPsychometricAnalysis   = "psychometric_analysis"
	OpRAGExplanation         = "rag_explanation"
	OpSimulateScore          = "simulate_score"
	OpScoreDeepDive          = "score_deep_dive"
	OpVouchingSMS            = "vouching_sms"
	OpActionableInsight      = "actionable_insight"
	OpConversationStarters   = "conversation_starters"
	OpFeedbackAnalysis       = "feedback_analysis"
	OpBudgetAnalysis         = "budget_analysis"
	OpLiteracyTip            = "literacy_tip"
	OpSavingsPlan            = "savings_plan"
	OpDiaryAnalysis          = "diary_analysis"
	OpReschedulingOptions    = "rescheduling_options"
	OpReminderMessage        = "reminder_message"
	OpPredictiveIntervention = "predictive_intervention"
	OpCoachReply             = "coach_reply"
)

type Advisor struct {
	gen    llm.Generator
	logger logger.Logger
}

func New(gen llm.Generator, log logger.Logger) *Advisor {
	return &Advisor{
		gen:    gen,
		logger: log.WithFields(map[string]interface{}{"component": "advisor"}),
	}
}

// fallback records that op was answered with static copy and returns v.
func fallback[T any](a *Advisor, op string, err error, v T) T {
	metrics.AIFallbacks.WithLabelValues(op).Inc()
	a.logger.Warn("AI call failed, using fallback", map[string]interface{}{
		"operation": op,
		"error":     err,
	})
	return v
}

// text runs a plain prompt and substitutes def on failure.
func (a *Advisor) text(ctx context.Context, op, prompt, def string) string {
	out, err := a.gen.GenerateText(ctx, op, prompt)
	if err != nil {
		return fallback(a, op, err, def)
	}
	return out
}

// toJSON renders v for embedding in a prompt.
func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func normalizeSentiment(s string) string {
	switch {
	case strings.EqualFold(s, models.SentimentPositive):
		return models.SentimentPositive
	case strings.EqualFold(s, models.SentimentNegative):
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

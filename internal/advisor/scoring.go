package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/knowledge"
	"kredmitra/internal/models"
)

const (
	GeoNotApplicable = "N/A for non-agricultural professions."
	GeoUnavailable   = "Geospatial analysis unavailable."
	maxLoanOptions   = 3
)

// ErrNoLoanOptions is returned when the model produced an empty loan list.
var ErrNoLoanOptions = errors.New("model returned no loan options")

// AnalyzeFinancialProfile produces the multi-dimensional trust score.
// profile and psych are optional. Failures are returned to the caller.
func (a *Advisor) AnalyzeFinancialProfile(ctx context.Context, user *models.UserData, profile *models.IntegratedProfile, psych string) (*models.ScoreData, error) {
	profileText := "Not available."
	if profile != nil {
		profileText = toJSON(profile)
	}
	psychText := psych
	if psychText == "" {
		psychText = "Not available."
	}

	prompt := fmt.Sprintf(`You are the Scoring Agent of a multi-agent credit assessment system for people without a formal credit history.
Analyse the full applicant profile and produce a multi-dimensional trust score.

Applicant: %s
Integrated alternative-data profile: %s
Psychometric analysis: %s

1. Scores on the 300-850 scale: finalScore, consistencyScore, communityTrustScore, resilienceScore.
2. scoreRationale: a short explanation.
3. fraudRisk: Low, Medium or High, with fraudRationale.
4. verificationStep: one practical next step for a human reviewer.
5. dynamicRiskAdjustment: any time-sensitive factors.`,
		toJSON(user), profileText, psychText)

	var score models.ScoreData
	if err := a.gen.GenerateJSON(ctx, OpAnalyzeProfile, prompt, scoreSchema, &score); err != nil {
		return nil, err
	}

	score.FinalScore = models.ClampScore(score.FinalScore)
	score.ConsistencyScore = models.ClampScore(score.ConsistencyScore)
	score.CommunityTrustScore = models.ClampScore(score.CommunityTrustScore)
	score.ResilienceScore = models.ClampScore(score.ResilienceScore)
	switch score.FraudRisk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		score.FraudRisk = models.RiskMedium
	}
	score.PsychometricAnalysis = psych
	return &score, nil
}

// GenerateLoanOptions proposes two or three modest loans sized to the score.
func (a *Advisor) GenerateLoanOptions(ctx context.Context, user *models.UserData, score *models.ScoreData) ([]models.LoanOption, error) {
	prompt := fmt.Sprintf(`Propose 2 or 3 responsible loan options for a %s with a trust score of %d (scale 300-850). Higher scores earn slightly better terms. Keep the amounts modest.`,
		user.Profession, score.FinalScore)

	var out struct {
		Loans []models.LoanOption `json:"loans"`
	}
	if err := a.gen.GenerateJSON(ctx, OpLoanOptions, prompt, loansSchema, &out); err != nil {
		return nil, err
	}
	if len(out.Loans) == 0 {
		return nil, commonerrors.NewAIGenerationError(OpLoanOptions, ErrNoLoanOptions)
	}
	if len(out.Loans) > maxLoanOptions {
		out.Loans = out.Loans[:maxLoanOptions]
	}
	return out.Loans, nil
}

// GetGeospatialAnalysis estimates agricultural prospects for farmers only.
func (a *Advisor) GetGeospatialAnalysis(ctx context.Context, user *models.UserData) *models.GeospatialAnalysis {
	if !user.IsFarmer() {
		return &models.GeospatialAnalysis{ProspectiveYieldScore: 0, Rationale: GeoNotApplicable}
	}

	prompt := fmt.Sprintf(`You are a geospatial analyst. Assess the agricultural prospects for a farmer in %s (pincode %s) using general knowledge of Indian climate and cropping patterns. Give a prospective yield score from 1 to 100 and a brief rationale.`,
		user.Location, user.Pincode)

	var out models.GeospatialAnalysis
	if err := a.gen.GenerateJSON(ctx, OpGeospatialAnalysis, prompt, geospatialSchema, &out); err != nil {
		return fallback(a, OpGeospatialAnalysis, err, &models.GeospatialAnalysis{ProspectiveYieldScore: 0, Rationale: GeoUnavailable})
	}
	out.ProspectiveYieldScore = clamp(out.ProspectiveYieldScore, 0, 100)
	return &out
}

// AnalyzePsychometricResponses summarises the answers as a one-sentence
// financial personality. No answers means no analysis.
func (a *Advisor) AnalyzePsychometricResponses(ctx context.Context, responses map[string]string) string {
	if len(responses) == 0 {
		return ""
	}
	prompt := fmt.Sprintf(`You are a psychometric analyst. Based on these answers %s, describe the person's financial personality in one sentence (for example: cautious planner, risk-tolerant).`, toJSON(responses))
	return strings.TrimSpace(a.text(ctx, OpPsychometricAnalysis, prompt, ""))
}

// GetRAGExplanation explains the score in Coach Mitra's voice, grounded on
// the fair lending document.
func (a *Advisor) GetRAGExplanation(ctx context.Context, score *models.ScoreData, user *models.UserData) string {
	doc := knowledge.Retrieve(fmt.Sprintf("explain my score of %d", score.FinalScore))
	prompt := fmt.Sprintf(`You are Coach Mitra, a helpful AI coach. Explain %s's trust score of %d using this context: %q. Scoring rationale: %q. Keep it simple and encouraging.`,
		firstName(user), score.FinalScore, doc.Content, score.ScoreRationale)

	def := fmt.Sprintf("Your score of %d reflects the information you shared with us. Lending decisions look at your whole financial story, not just past loans. Keep up regular payments to grow it further! 🌱", score.FinalScore)
	return a.text(ctx, OpRAGExplanation, prompt, def)
}

// SimulateScoreChange predicts the effect of a what-if action. The fallback
// keeps the current score.
func (a *Advisor) SimulateScoreChange(ctx context.Context, score *models.ScoreData, action string) *models.ScoreSimulation {
	prompt := fmt.Sprintf(`A person with a trust score of %d is considering this action: %q. Predict their new score on the 300-850 scale and give a short rationale.`, score.FinalScore, action)

	var out models.ScoreSimulation
	if err := a.gen.GenerateJSON(ctx, OpSimulateScore, prompt, simulationSchema, &out); err != nil {
		return fallback(a, OpSimulateScore, err, &models.ScoreSimulation{
			NewScore:  score.FinalScore,
			Rationale: "We couldn't simulate this change right now. Your current score is shown.",
		})
	}
	out.NewScore = models.ClampScore(out.NewScore)
	return &out
}

func (a *Advisor) GetScoreDeepDive(ctx context.Context, score *models.ScoreData, user *models.UserData) string {
	prompt := fmt.Sprintf(`Give %s a more detailed but still simple explanation of this score: %s. Explain how the consistency, community trust and resilience sub-scores shaped the final score.`,
		firstName(user), toJSON(score))
	return a.text(ctx, OpScoreDeepDive, prompt, score.ScoreRationale)
}

func (a *Advisor) GetPersonalizedActionableInsight(ctx context.Context, score *models.ScoreData, user *models.UserData) string {
	prompt := fmt.Sprintf(`Given this applicant %s and their score %s, give one highly specific, actionable tip to improve their financial health.`, toJSON(user), toJSON(score))
	return a.text(ctx, OpActionableInsight, prompt,
		"Try setting aside a small amount every week. Even ₹50 builds a safety net for slow months. 💡")
}

func firstName(user *models.UserData) string {
	if user == nil || strings.TrimSpace(user.Name) == "" {
		return "the applicant"
	}
	return strings.Fields(user.Name)[0]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package advisor

import (
	"context"
	"fmt"
	"strings"

	"kredmitra/internal/models"
)

const FeedbackThanks = "Thank you for your feedback!"

// DefaultStarters is offered when starters cannot be generated.
var DefaultStarters = []string{
	"How can I make sure I pay my loan on time?",
	"Can you give me a tip to save money?",
	"What happens if I miss a payment?",
}

// GenerateVouchingSMS drafts the message an applicant sends to their
// community reference.
func (a *Advisor) GenerateVouchingSMS(ctx context.Context, name string) string {
	prompt := fmt.Sprintf(`Write a short, polite SMS that %s can send to their community reference asking them to vouch for them on KredMitra. Keep it clear and under 300 characters.`, name)
	return a.text(ctx, OpVouchingSMS, prompt, fmt.Sprintf(
		"Hello! %s has named you as a community reference on KredMitra. Please reply YES to confirm you know them. Thank you! 🙏", name))
}

// GetConversationStarters returns three prompts for the coach chat.
func (a *Advisor) GetConversationStarters(ctx context.Context, loan *models.SelectedLoan) []string {
	loanName := "small"
	if loan != nil {
		loanName = loan.Name
	}
	prompt := fmt.Sprintf(`Suggest 3 varied, relevant questions a borrower with a %q loan might ask their financial coach. Return them in the "starters" array.`, loanName)

	var out struct {
		Starters []string `json:"starters"`
	}
	if err := a.gen.GenerateJSON(ctx, OpConversationStarters, prompt, startersSchema, &out); err != nil || len(out.Starters) == 0 {
		return fallback(a, OpConversationStarters, err, append([]string(nil), DefaultStarters...))
	}
	if len(out.Starters) > 3 {
		out.Starters = out.Starters[:3]
	}
	return out.Starters
}

func (a *Advisor) AnalyzeUserFeedback(ctx context.Context, text string) *models.FeedbackAnalysis {
	prompt := fmt.Sprintf(`Analyse this user feedback: %q. Give the sentiment (Positive, Negative or Neutral), a category (for example UI/UX, Loan Terms, AI Coach) and a one-sentence summary.`, text)

	var out models.FeedbackAnalysis
	if err := a.gen.GenerateJSON(ctx, OpFeedbackAnalysis, prompt, feedbackSchema, &out); err != nil {
		return fallback(a, OpFeedbackAnalysis, err, &models.FeedbackAnalysis{
			Category:  "Feedback",
			Sentiment: models.SentimentNeutral,
			Summary:   FeedbackThanks,
		})
	}
	out.Sentiment = normalizeSentiment(out.Sentiment)
	return &out
}

// AnalyzeBudget splits a spoken or typed expense list into categories.
func (a *Advisor) AnalyzeBudget(ctx context.Context, text string) []models.BudgetCategory {
	prompt := fmt.Sprintf(`This text describes monthly expenses: %q. Extract every category with its amount in rupees into the "budget" array.`, text)

	var out struct {
		Budget []models.BudgetCategory `json:"budget"`
	}
	if err := a.gen.GenerateJSON(ctx, OpBudgetAnalysis, prompt, budgetSchema, &out); err != nil {
		return fallback(a, OpBudgetAnalysis, err, []models.BudgetCategory{})
	}
	if out.Budget == nil {
		return []models.BudgetCategory{}
	}
	return out.Budget
}

func (a *Advisor) GetFinancialLiteracyTip(ctx context.Context, profession string) string {
	prompt := fmt.Sprintf(`Give one short, practical financial literacy tip for a %s in India.`, profession)
	return a.text(ctx, OpLiteracyTip, prompt,
		"Write down what you earn and spend each day. Knowing where your money goes is the first step to saving more. 🌱")
}

// CreateSavingsPlan builds a three-step plan toward goal.
func (a *Advisor) CreateSavingsPlan(ctx context.Context, goal string, amount float64, profession string) *models.SavingsPlan {
	prompt := fmt.Sprintf(`Create a simple 3-step savings plan for a %s who wants to save ₹%.0f for %q.`, profession, amount, goal)

	var out models.SavingsPlan
	if err := a.gen.GenerateJSON(ctx, OpSavingsPlan, prompt, savingsPlanSchema, &out); err != nil || len(out.Steps) == 0 {
		return fallback(a, OpSavingsPlan, err, &models.SavingsPlan{
			Goal:   goal,
			Amount: amount,
			Steps: []models.SavingsStep{
				{Title: "Set a weekly amount", Description: fmt.Sprintf("Divide ₹%.0f into small weekly amounts you can manage.", amount)},
				{Title: "Save first", Description: "Put the weekly amount aside as soon as you are paid, before other spending."},
				{Title: "Track your progress", Description: "Check your savings every month and celebrate each milestone."},
			},
		})
	}
	if len(out.Steps) > 3 {
		out.Steps = out.Steps[:3]
	}
	if out.Goal == "" {
		out.Goal = goal
	}
	if out.Amount == 0 {
		out.Amount = amount
	}
	return &out
}

func (a *Advisor) AnalyzeFinancialDiaryEntry(ctx context.Context, transcript string) *models.DiaryAnalysis {
	prompt := fmt.Sprintf(`Analyse this financial diary entry: %q. Give a one-sentence summary and the overall sentiment (Positive, Negative or Neutral).`, transcript)

	var out models.DiaryAnalysis
	if err := a.gen.GenerateJSON(ctx, OpDiaryAnalysis, prompt, diarySchema, &out); err != nil {
		return fallback(a, OpDiaryAnalysis, err, &models.DiaryAnalysis{
			Summary:   "Diary entry saved.",
			Sentiment: models.SentimentNeutral,
		})
	}
	out.Sentiment = normalizeSentiment(out.Sentiment)
	return &out
}

// GetReschedulingOptions suggests two or three ways to restructure a loan
// for a borrower in crisis.
func (a *Advisor) GetReschedulingOptions(ctx context.Context, crisis string, amount float64) *models.ReschedulingOptions {
	prompt := fmt.Sprintf(`A borrower with a loan of ₹%.0f is facing a crisis: %q. Suggest 2 or 3 realistic rescheduling options (for example a payment pause or a reduced EMI) with one short introductory sentence.`, amount, crisis)

	var out models.ReschedulingOptions
	if err := a.gen.GenerateJSON(ctx, OpReschedulingOptions, prompt, reschedulingSchema, &out); err != nil || len(out.Options) == 0 {
		return fallback(a, OpReschedulingOptions, err, &models.ReschedulingOptions{
			Intro: "We understand this is a difficult time. Here are some options we can discuss with you:",
			Options: []string{
				"A payment pause of one to two months",
				"A reduced EMI spread over a longer tenure",
			},
		})
	}
	if len(out.Options) > 3 {
		out.Options = out.Options[:3]
	}
	return &out
}

func (a *Advisor) GenerateReminderMessage(ctx context.Context, name, loanName string) string {
	prompt := fmt.Sprintf(`Write a friendly, encouraging reminder for %s about the next payment on their %q loan. One or two sentences.`, name, loanName)
	return a.text(ctx, OpReminderMessage, prompt, fmt.Sprintf(
		"Hi %s, a friendly reminder that your next payment for %q is coming up. You're doing great! 🙏", name, loanName))
}

// PredictiveInterventionCheck looks for a persistent negative trend in the
// diary. Fewer than two negative entries never reaches the model.
func (a *Advisor) PredictiveInterventionCheck(ctx context.Context, entries []models.DiaryEntry) *models.PredictiveIntervention {
	negative := 0
	for _, e := range entries {
		if strings.EqualFold(e.Sentiment, models.SentimentNegative) {
			negative++
		}
	}
	if negative < 2 {
		return &models.PredictiveIntervention{}
	}

	prompt := fmt.Sprintf(`Here are a borrower's recent financial diary entries: %s. If they show a persistent negative trend, set needsHelp to true and write a gentle, proactive suggestion. Otherwise set needsHelp to false.`, toJSON(entries))

	var out models.PredictiveIntervention
	if err := a.gen.GenerateJSON(ctx, OpPredictiveIntervention, prompt, interventionSchema, &out); err != nil {
		return fallback(a, OpPredictiveIntervention, err, &models.PredictiveIntervention{})
	}
	return &out
}

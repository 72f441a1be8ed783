package advisor

import (
	"context"
	"fmt"
	"strings"

	"kredmitra/internal/knowledge"
	"kredmitra/internal/models"
)

const (
	NotMentioned  = "Not mentioned"
	AnalysisError = "Analysis Error"

	HelpFallback     = "Sorry, I couldn't get an answer right now."
	DocumentFallback = "Could not verify the document at this time."
	OCRFallback      = "No text could be extracted."
	ConsentFallback  = "We only use this information to understand your situation fairly, so we can offer you a loan that fits what you can repay."

	maxClarifyingQuestions = 3
	minStatementLength     = 20
)

// ExtractStructuredData turns the free-text statement and OCR'd ledger into
// the five predictive features.
func (a *Advisor) ExtractStructuredData(ctx context.Context, user *models.UserData) *models.StructuredData {
	if strings.TrimSpace(user.FinancialStatement) == "" && strings.TrimSpace(user.TransactionLedger) == "" {
		return models.UniformStructuredData(NotMentioned)
	}

	ledger := user.TransactionLedger
	if ledger == "" {
		ledger = "Not provided"
	}
	prompt := fmt.Sprintf(`You are the Feature Engineering Agent of a multi-agent credit assessment system.
Read the applicant's own words and extract predictive features. Use only what the applicant said; write '%s' for any category they did not cover. Do not invent information.

Profession: %s
Income type: %s
Financial statement: %q
Digitized ledger (OCR): %q

Fill incomeRegularity, repaymentHistory, financialShockIndicators, behavioralMetrics and lifeEventSignals.`,
		NotMentioned, user.Profession, user.IncomeType, user.FinancialStatement, ledger)

	var out models.StructuredData
	if err := a.gen.GenerateJSON(ctx, OpExtractStructuredData, prompt, structuredDataSchema, &out); err != nil {
		return fallback(a, OpExtractStructuredData, err, models.UniformStructuredData(AnalysisError))
	}
	return &out
}

// GetOnboardingHelp answers a form question grounded on the closest
// knowledge base document.
func (a *Advisor) GetOnboardingHelp(ctx context.Context, question string) string {
	doc := knowledge.Retrieve(question)
	prompt := fmt.Sprintf(`You are the friendly onboarding assistant of KredMitra, a financial inclusion app. Answer the question simply and clearly using the context below.

Context (%s):
%s

Question: %q

Answer in simple, encouraging language.`, doc.Title, doc.Content, question)

	return a.text(ctx, OpOnboardingHelp, prompt, HelpFallback)
}

func (a *Advisor) VerifyDocumentAuthenticity(ctx context.Context, image []byte, mimeType string) string {
	const prompt = "Look at this image. Is it a genuine, unaltered document, or a screenshot or edited image? Check for signs of digital editing, screen glare or inconsistencies. Answer in one sentence, such as 'Document appears authentic' or 'Potential signs of tampering detected.'"

	out, err := a.gen.GenerateWithImage(ctx, OpVerifyDocument, prompt, image, mimeType)
	if err != nil {
		return fallback(a, OpVerifyDocument, err, DocumentFallback)
	}
	return out
}

// SimulateVernacularOCR reads printed or handwritten text, including Indian
// regional scripts, from a ledger photo.
func (a *Advisor) SimulateVernacularOCR(ctx context.Context, image []byte, mimeType string) string {
	const prompt = "Extract all printed and handwritten text from this image. Be precise with numbers and dates. The text may be in English or an Indian regional language."

	out, err := a.gen.GenerateWithImage(ctx, OpVernacularOCR, prompt, image, mimeType)
	if err != nil {
		return fallback(a, OpVernacularOCR, err, OCRFallback)
	}
	return out
}

func (a *Advisor) GetConsentExplanation(ctx context.Context, topic string) string {
	prompt := fmt.Sprintf(`In two or three short, reassuring sentences, explain why a lending app asks about a person's %q. Speak from the applicant's point of view and focus on the benefit to them, such as a fairer assessment or a better loan.`, topic)
	return a.text(ctx, OpConsentExplanation, prompt, ConsentFallback)
}

// GenerateClarifyingQuestions returns up to three follow-up questions about
// vague parts of the statement. Short statements get none.
func (a *Advisor) GenerateClarifyingQuestions(ctx context.Context, statement string) []string {
	if len(strings.TrimSpace(statement)) < minStatementLength {
		return []string{}
	}

	prompt := fmt.Sprintf(`Read the applicant's financial statement. If something is vague (for example "I earn a decent amount"), write 1 to 3 short, specific follow-up questions. If everything is clear, return an empty list.

Statement: %q`, statement)

	var out struct {
		Questions []string `json:"questions"`
	}
	if err := a.gen.GenerateJSON(ctx, OpClarifyingQuestions, prompt, questionsSchema, &out); err != nil {
		return fallback(a, OpClarifyingQuestions, err, []string{})
	}

	questions := make([]string, 0, maxClarifyingQuestions)
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" && len(questions) < maxClarifyingQuestions {
			questions = append(questions, q)
		}
	}
	return questions
}

package advisor

import (
	"context"
	"fmt"

	"kredmitra/internal/common/llm"
	"kredmitra/internal/models"
)

// CoachUnavailable is shown in the chat when the model cannot be reached.
const CoachUnavailable = "I'm sorry, I'm having a little trouble connecting. Please try again in a moment."

// CoachGreeting opens a new chat thread.
func CoachGreeting(name string) string {
	return fmt.Sprintf("Hello %s! I'm Coach Mitra, your personal financial guide. How can I help you manage your loan or savings today? 😊", name)
}

func coachInstruction(name string, loan *models.SelectedLoan) string {
	loanName, amount := "none yet", 0.0
	if loan != nil {
		loanName, amount = loan.Name, loan.Amount
	}
	return fmt.Sprintf(`You are 'Coach Mitra', a friendly and encouraging AI financial coach. Your job is user engagement and support.

User context:
- Name: %s
- Loan: %q for ₹%.0f

Rules:
1. Persona: simple, positive and empathetic. Use short sentences and the occasional emoji (🙏, 😊, 🌱, 💡).
2. Safety: never give direct financial advice. Frame suggestions as educational tips.
3. For questions about data privacy, be reassuring and refer to our privacy policy: data is used only with consent and never shared without permission.`,
		name, loanName, amount)
}

// CoachReply continues the chat. On failure it returns CoachUnavailable
// together with the error so callers can skip persisting the turn.
func (a *Advisor) CoachReply(ctx context.Context, name string, loan *models.SelectedLoan, history []models.ChatMessage, message string) (string, error) {
	turns := make([]llm.Message, 0, len(history))
	for _, m := range history {
		// the model API expects the conversation to open with a user turn
		if len(turns) == 0 && m.Role != models.RoleUser {
			continue
		}
		turns = append(turns, llm.Message{Role: m.Role, Text: m.Text})
	}

	reply, err := a.gen.Chat(ctx, OpCoachReply, coachInstruction(name, loan), turns, message)
	if err != nil {
		return fallback(a, OpCoachReply, err, CoachUnavailable), err
	}
	return reply, nil
}

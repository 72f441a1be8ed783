package ussd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonerrors "kredmitra/internal/common/errors"
)

// MaxAnswerLength is the longest single answer a USSD handset can send.
const MaxAnswerLength = 182

// Gateway speaks the CON/END text protocol used by USSD aggregators. The
// aggregator sends the session ID and every answer so far joined with '*'.
type Gateway struct {
	engine *Engine
}

func NewGateway(engine *Engine) *Gateway {
	return &Gateway{engine: engine}
}

// Respond returns the screen for the request, prefixed with CON while the
// dialogue continues and END once it is over. phoneNumber is the caller's
// MSISDN as reported by the aggregator.
func (g *Gateway) Respond(ctx context.Context, sessionID, phoneNumber, text string) (string, error) {
	answer := lastAnswer(text)
	if len([]rune(answer)) > MaxAnswerLength {
		return "", commonerrors.NewUSSDInvalidInputError(
			fmt.Sprintf("answer exceeds %d characters", MaxAnswerLength))
	}

	_, err := g.engine.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		s, err := g.engine.Start(ctx, sessionID, phoneNumber)
		if err != nil {
			return "", err
		}
		return frame(s), nil
	}
	if err != nil {
		return "", err
	}

	s, err := g.engine.Input(ctx, sessionID, answer)
	if err != nil {
		return "", err
	}
	return frame(s), nil
}

func frame(s *Session) string {
	if s.Done() {
		return "END " + s.Screen
	}
	return "CON " + s.Screen
}

func lastAnswer(text string) string {
	if i := strings.LastIndex(text, "*"); i >= 0 {
		return text[i+1:]
	}
	return text
}

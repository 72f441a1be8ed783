// Package coach runs the Coach Mitra chat for signed-in borrowers.
package coach

import (
	"context"
	"strings"
	"time"

	"kredmitra/internal/advisor"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
)

type Users interface {
	Get(ctx context.Context, mobile string) (*models.UserRecord, error)
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

type Chats interface {
	History(ctx context.Context, mobile string) ([]models.ChatMessage, error)
	Save(ctx context.Context, mobile string, msgs []models.ChatMessage) error
}

type Replier interface {
	CoachReply(ctx context.Context, name string, loan *models.SelectedLoan, history []models.ChatMessage, message string) (string, error)
	GetConversationStarters(ctx context.Context, loan *models.SelectedLoan) []string
}

// Reply is the outcome of one chat turn. Delivered is false when the model
// could not answer and Text carries the apology copy instead.
type Reply struct {
	Text      string               `json:"text"`
	Delivered bool                 `json:"delivered"`
	History   []models.ChatMessage `json:"history"`
}

type Service struct {
	users   Users
	chats   Chats
	replier Replier
	logger  logger.Logger
	now     func() time.Time
}

func NewService(users Users, chats Chats, replier Replier, log logger.Logger) *Service {
	return &Service{users: users, chats: chats, replier: replier, logger: log, now: time.Now}
}

// History returns the stored thread or, for a new thread, the greeting.
func (s *Service) History(ctx context.Context, mobile string) ([]models.ChatMessage, error) {
	rec, err := s.users.Get(ctx, mobile)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, rec)
}

func (s *Service) history(ctx context.Context, rec *models.UserRecord) ([]models.ChatMessage, error) {
	msgs, err := s.chats.History(ctx, rec.Mobile)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return []models.ChatMessage{{Role: models.RoleModel, Text: advisor.CoachGreeting(rec.FirstName)}}, nil
	}
	return msgs, nil
}

// Send appends one user message and the coach's answer. Failed turns are
// not stored.
func (s *Service) Send(ctx context.Context, mobile, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, commonerrors.NewValidationError("message is required")
	}

	rec, err := s.users.Get(ctx, mobile)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, rec)
	if err != nil {
		return nil, err
	}

	text, err := s.replier.CoachReply(ctx, rec.FirstName, rec.SelectedLoan, history, message)
	if err != nil {
		s.logger.Warn("Coach reply failed", map[string]interface{}{"mobile": mobile, "error": err.Error()})
		return &Reply{Text: text, History: history}, nil
	}

	updated := make([]models.ChatMessage, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		models.ChatMessage{Role: models.RoleUser, Text: message},
		models.ChatMessage{Role: models.RoleModel, Text: text},
	)

	if err := s.chats.Save(ctx, mobile, updated); err != nil {
		return nil, err
	}
	_, err = s.users.Update(ctx, mobile, func(r *models.UserRecord) error {
		r.ChatHistory = updated
		r.Touch(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Reply{Text: text, Delivered: true, History: updated}, nil
}

// Starters suggests opening questions until the user has said anything.
func (s *Service) Starters(ctx context.Context, mobile string) ([]string, error) {
	rec, err := s.users.Get(ctx, mobile)
	if err != nil {
		return nil, err
	}
	history, err := s.history(ctx, rec)
	if err != nil {
		return nil, err
	}
	if len(history) > 1 {
		return []string{}, nil
	}
	return s.replier.GetConversationStarters(ctx, rec.SelectedLoan), nil
}

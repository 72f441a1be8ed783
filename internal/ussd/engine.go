// Package ussd runs the feature-phone onboarding dialogue: a linear list of
// screens with a few branches, persisted per session between gateway
// requests and scored through the USSD pipeline on the last answer.
package ussd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
)

type Clarifier interface {
	GenerateClarifyingQuestions(ctx context.Context, statement string) []string
}

type Scorer interface {
	RunUSSD(ctx context.Context, user *models.UserData) (*models.Application, error)
}

// UserUpdater applies a read-modify-write to the caller's account.
type UserUpdater interface {
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

type Engine struct {
	store     Store
	clarifier Clarifier
	scorer    Scorer
	users     UserUpdater
	logger    logger.Logger
	now       func() time.Time
}

func NewEngine(store Store, clarifier Clarifier, scorer Scorer, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		clarifier: clarifier,
		scorer:    scorer,
		logger:    log,
		now:       time.Now,
	}
}

// WithUsers stores processed applications on the caller's account so the
// borrower can continue from the score result.
func (e *Engine) WithUsers(users UserUpdater) *Engine {
	e.users = users
	return e
}

// Start opens a new session for the caller's mobile, which may be empty.
// An empty id gets a generated one.
func (e *Engine) Start(ctx context.Context, id, mobile string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now()
	s := &Session{
		ID:        id,
		Mobile:    localMobile(mobile),
		Status:    StatusCollecting,
		Step:      StepName,
		Screen:    steps[StepName].render(),
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Save(ctx, s); err != nil {
		return nil, err
	}
	e.logger.Info("USSD session started", map[string]interface{}{"sessionId": id})
	return s, nil
}

func (e *Engine) Get(ctx context.Context, id string) (*Session, error) {
	return e.store.Get(ctx, id)
}

// Input feeds one answer to the current screen. Rejected input keeps the
// session on the same step with the rule's message in front of the prompt.
func (e *Engine) Input(ctx context.Context, id, input string) (*Session, error) {
	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch s.Status {
	case StatusCollecting:
		e.collect(ctx, s, input)
	case StatusProcessed:
		if strings.TrimSpace(input) == "1" {
			s.Screen = Report(s.Application)
		} else {
			s.Screen = MsgSessionEnded
		}
		s.Status = StatusClosed
	default:
		return s, nil
	}

	s.UpdatedAt = e.now()
	if err := e.store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) collect(ctx context.Context, s *Session, input string) {
	st, ok := s.lookup(s.Step)
	if !ok {
		e.logger.Error("USSD session on unknown step", map[string]interface{}{
			"sessionId": s.ID,
			"step":      s.Step,
		})
		e.fail(s, fmt.Errorf("unknown step %q", s.Step))
		return
	}

	value, msg := st.normalize(input)
	if msg != "" {
		s.Error = msg
		s.Screen = msg + "\n" + st.render()
		return
	}
	s.Error = ""

	next := st.apply(s, value)
	if next == StepAnalyzing {
		next = e.analyze(ctx, s)
	}
	if next == "" {
		e.submit(ctx, s)
		return
	}

	s.Step = next
	nextStep, _ := s.lookup(next)
	s.Screen = nextStep.render()
}

// analyze generates clarifying questions for the statement and returns the
// step that follows the analyzing screen.
func (e *Engine) analyze(ctx context.Context, s *Session) string {
	s.Clarifications = e.clarifier.GenerateClarifyingQuestions(ctx, s.Data.FinancialStatement)
	if len(s.Clarifications) > 0 {
		return clarificationStep(0)
	}
	return StepPincode
}

func (e *Engine) submit(ctx context.Context, s *Session) {
	s.Status = StatusProcessing
	s.Screen = steps[StepAnalyzing].render()
	s.UpdatedAt = e.now()
	if err := e.store.Save(ctx, s); err != nil {
		e.logger.Warn("Failed to persist processing state", map[string]interface{}{
			"sessionId": s.ID,
			"error":     err.Error(),
		})
	}

	app, err := e.scorer.RunUSSD(ctx, &s.Data)
	if err != nil {
		e.fail(s, err)
		return
	}

	if err := e.persist(ctx, s, app); err != nil {
		e.fail(s, err)
		return
	}

	s.Status = StatusProcessed
	s.Application = app
	s.Screen = fmt.Sprintf(finalScoreMessage, app.ScoreData.FinalScore)
	metrics.USSDSessions.WithLabelValues(string(StatusProcessed)).Inc()
	e.logger.Info("USSD application processed", map[string]interface{}{
		"sessionId":  s.ID,
		"finalScore": app.ScoreData.FinalScore,
	})
}

// persist records app on the account behind the session. The dialling
// number wins over the phone typed into the form. Callers without an
// account keep the result in the session only.
func (e *Engine) persist(ctx context.Context, s *Session, app *models.Application) error {
	mobile := s.Mobile
	if mobile == "" {
		mobile = s.Data.Phone
	}
	if e.users == nil || mobile == "" {
		return nil
	}

	_, err := e.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		rec.RecordApplication(app, e.now())
		return nil
	})
	if commonerrors.CodeOf(err) == commonerrors.ErrCodeUserNotFound {
		e.logger.Info("USSD applicant has no account", map[string]interface{}{
			"sessionId": s.ID,
			"mobile":    mobile,
		})
		return nil
	}
	if err != nil {
		return err
	}
	s.Mobile = mobile
	s.Saved = true
	return nil
}

// localMobile reduces an MSISDN such as +919876543210 to its ten-digit
// national number.
func localMobile(msisdn string) string {
	digits := validation.DigitsOnly(msisdn, 0)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func (e *Engine) fail(s *Session, err error) {
	s.Status = StatusError
	s.Error = string(commonerrors.CodeOf(err))
	s.Screen = MsgProcessFailed
	metrics.USSDSessions.WithLabelValues(string(StatusError)).Inc()
	e.logger.Error("USSD application failed", map[string]interface{}{
		"sessionId": s.ID,
		"error":     err.Error(),
	})
}

// Report is the detailed screen shown after a processed application.
func Report(app *models.Application) string {
	if app == nil || app.ScoreData == nil {
		return MsgProcessFailed
	}
	var b strings.Builder
	fmt.Fprintf(&b, "KredMitra Report\nScore: %d\nFraud risk: %s", app.ScoreData.FinalScore, app.ScoreData.FraudRisk)
	if len(app.LoanOptions) > 0 {
		b.WriteString("\nLoan offers:")
		for i, l := range app.LoanOptions {
			fmt.Fprintf(&b, "\n%d. %s - ₹%.0f", i+1, l.Name, l.Amount)
		}
	}
	return b.String()
}

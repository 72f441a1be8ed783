// Package onboarding validates web applications, runs phone OTP
// verification and submits completed forms to the scoring pipeline.
package onboarding

import (
	"context"
	"strings"
	"time"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
	"kredmitra/internal/verification"
)

// WebScorer runs the web scoring pipeline.
type WebScorer interface {
	RunWeb(ctx context.Context, user *models.UserData) (*models.Application, error)
}

// UserStore reads and updates the applicant's account record.
type UserStore interface {
	Get(ctx context.Context, mobile string) (*models.UserRecord, error)
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

type Service struct {
	otp    *OTPService
	scorer WebScorer
	users  UserStore
	logger logger.Logger
	now    func() time.Time
}

func NewService(otp *OTPService, scorer WebScorer, users UserStore, log logger.Logger) *Service {
	return &Service{otp: otp, scorer: scorer, users: users, logger: log, now: time.Now}
}

func (s *Service) OTP() *OTPService {
	return s.otp
}

// Prefill returns a demo applicant and marks its phone verified.
func (s *Service) Prefill(ctx context.Context, kind string) (*models.UserData, error) {
	user, ok := Examples(kind)
	if !ok {
		return nil, commonerrors.NewValidationError("unknown example: " + kind)
	}
	if err := s.otp.markVerified(ctx, user.Phone); err != nil {
		return nil, err
	}
	user.OTPVerified = true
	return user, nil
}

// Check reports field errors for user. OTP state comes from the server,
// never from the submitted flag.
func (s *Service) Check(ctx context.Context, user *models.UserData) (*validation.ValidationResult, error) {
	verified, err := s.otp.Verified(ctx, user.Phone)
	if err != nil {
		return nil, err
	}
	user.OTPVerified = verified
	return Validate(user), nil
}

// VerifyIdentity checks the applicant tuple before the consent step.
func VerifyIdentity(user *models.UserData) error {
	if !verification.VerifyUser(user.Name, user.Aadhaar, user.Phone, user.AccountNumber) {
		return commonerrors.NewVerificationFailedError("identity tuple does not match verification records")
	}
	return nil
}

// Submit scores a completed web application and stores the result on the
// account identified by mobile. The identity check uses the name typed into
// the form; the scored application carries the account holder's name.
func (s *Service) Submit(ctx context.Context, mobile string, user *models.UserData) (*models.Application, error) {
	result, err := s.Check(ctx, user)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, commonerrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := VerifyIdentity(user); err != nil {
		return nil, err
	}

	account, err := s.users.Get(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(account.FullName()); name != "" {
		user.Name = name
	}

	app, err := s.scorer.RunWeb(ctx, user)
	if err != nil {
		return nil, err
	}

	_, err = s.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		rec.RecordApplication(app, s.now())
		rec.Channel = models.ChannelWebApp
		rec.Pincode = user.Pincode
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Web application submitted", map[string]interface{}{
		"mobile":     mobile,
		"finalScore": app.ScoreData.FinalScore,
		"loanCount":  len(app.LoanOptions),
	})
	return app, nil
}

// Package accounts handles signup, password login, the configured admin
// login and bearer-token sessions.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/config"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
	"kredmitra/internal/store"
)

const (
	MsgAllFieldsRequired = "All fields are required."
	MsgPasswordMismatch  = "Passwords do not match."
	MsgInvalidMobile     = "Mobile number must be exactly 10 digits."
	MsgInvalidAdmin      = "Invalid email or password."
)

// Defaults for a freshly signed up account.
const (
	DefaultCreditScore = 680
	DefaultPincode     = "000000"
)

type UserStore interface {
	Create(ctx context.Context, rec *models.UserRecord) error
	Get(ctx context.Context, mobile string) (*models.UserRecord, error)
}

type SessionStore interface {
	Put(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DOB             string `json:"dob"`
	Mobile          string `json:"mobile"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   *auth.Hasher
	admin    config.AuthConfig
	logger   logger.Logger
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, hasher *auth.Hasher, admin config.AuthConfig, log logger.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		admin:    admin,
		logger:   log,
		now:      time.Now,
	}
}

// NewUserRecord builds the default record for a new account.
func NewUserRecord(req SignupRequest, passwordHash string, now time.Time) *models.UserRecord {
	rec := &models.UserRecord{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DOB:          req.DOB,
		Mobile:       req.Mobile,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,

		CreditScore: DefaultCreditScore,
		RiskLevel:   models.RiskMedium,
		Status:      "Active",
		RiskFlags:   []string{},

		SimAgeDays:       100,
		RechargesLast6M:  10,
		AvgTopUp:         10.0,
		RechargeVariance: 3.0,
		MobilityIndex:    5.0,

		AppStep:    models.StepOnboarding,
		Channel:    models.ChannelWebApp,
		LoanStatus: models.LoanNone,
		Pincode:    DefaultPincode,

		WellnessBadges: models.Badges(models.BadgeOnboarding),
		Feedback:       []models.Feedback{},
		ChatHistory:    []models.ChatMessage{},
	}
	rec.Touch(now)
	return rec
}

func validateSignup(req SignupRequest) error {
	for _, f := range []string{req.FirstName, req.LastName, req.DOB, req.Mobile, req.Password, req.ConfirmPassword} {
		if strings.TrimSpace(f) == "" {
			return commonerrors.NewValidationError(MsgAllFieldsRequired)
		}
	}
	if req.Password != req.ConfirmPassword {
		return commonerrors.NewValidationError(MsgPasswordMismatch)
	}
	if !validation.ValidateMobile(req.Mobile) {
		return commonerrors.NewValidationError(MsgInvalidMobile)
	}
	return nil
}

// Signup creates the account and signs it in.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*models.Session, *models.UserRecord, error) {
	if err := validateSignup(req); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, commonerrors.NewExternalServiceError("bcrypt", err)
	}
	rec := NewUserRecord(req, hash, s.now())
	if err := s.users.Create(ctx, rec); err != nil {
		return nil, nil, err
	}

	sess, err := s.open(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("User signed up", map[string]interface{}{"mobile": rec.Mobile})
	public := rec.Public()
	return sess, &public, nil
}

// Login checks mobile and password. Unknown mobiles and wrong passwords
// produce the same error.
func (s *Service) Login(ctx context.Context, mobile, password string) (*models.Session, *models.UserRecord, error) {
	if strings.TrimSpace(mobile) == "" || password == "" {
		return nil, nil, commonerrors.NewValidationError(MsgAllFieldsRequired)
	}

	rec, err := s.users.Get(ctx, mobile)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, nil, commonerrors.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, nil, err
	}
	if err := s.hasher.Verify(rec.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("Password check failed", map[string]interface{}{"mobile": mobile, "error": err.Error()})
		}
		return nil, nil, commonerrors.NewInvalidCredentialsError()
	}

	sess, err := s.open(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	public := rec.Public()
	return sess, &public, nil
}

// AdminLogin signs in the single configured administrator.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*models.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, commonerrors.NewValidationError(MsgAllFieldsRequired)
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.admin.AdminEmail) ||
		!auth.ConstantTimeEqual(password, s.admin.AdminPassword) {
		e := commonerrors.NewInvalidCredentialsError()
		e.Message = MsgInvalidAdmin
		return nil, e
	}

	sess := &models.Session{
		Token:     auth.NewSessionToken(),
		FirstName: s.admin.AdminFirstName,
		Email:     s.admin.AdminEmail,
		IsAdmin:   true,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("Admin signed in", map[string]interface{}{"email": sess.Email})
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a bearer token to its session.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, commonerrors.Wrap(commonerrors.NewSessionNotFoundError(), store.ErrSessionNotFound)
	}
	return s.sessions.Get(ctx, token)
}

func (s *Service) open(ctx context.Context, rec *models.UserRecord) (*models.Session, error) {
	sess := &models.Session{
		Token:     auth.NewSessionToken(),
		Mobile:    rec.Mobile,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Email:     rec.Email,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

package onboarding

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/database"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/notify"
)

var ErrOTPInvalid = errors.New("OTP_INVALID")

const (
	otpKeyPrefix      = "kredmitra_otp_"
	otpVerifiedSuffix = "_verified"
	otpAttemptsPrefix = "kredmitra_otp_attempts_"
	otpMessage        = "Your OTP is:"

	// verifiedTTL bounds how long a confirmed phone stays usable for one
	// onboarding submission.
	verifiedTTL = 30 * time.Minute

	// MaxVerifyAttempts wrong guesses burn the pending code.
	MaxVerifyAttempts = 5
)

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (*notify.Receipt, error)
}

type pendingOTP struct {
	Code   string    `json:"code"`
	SentAt time.Time `json:"sentAt"`
}

// OTPService issues six-digit phone verification codes and remembers which
// phones have confirmed one.
type OTPService struct {
	redis    *database.RedisClient
	sms      SMSSender
	ttl      time.Duration
	cooldown time.Duration
	logger   logger.Logger

	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(redis *database.RedisClient, sms SMSSender, ttl, cooldown time.Duration, log logger.Logger) *OTPService {
	return &OTPService{
		redis:    redis,
		sms:      sms,
		ttl:      ttl,
		cooldown: cooldown,
		logger:   log,
		now:      time.Now,
		generate: generateCode,
	}
}

// generateCode returns a uniformly distributed code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}

// Send issues a fresh code to phone. A second request inside the cooldown
// window is rejected with the remaining wait.
func (s *OTPService) Send(ctx context.Context, phone string) error {
	if !validation.ValidateMobile(phone) {
		return commonerrors.NewValidationError(MsgPhone)
	}

	var prev pendingOTP
	err := s.redis.GetJSON(ctx, otpKeyPrefix+phone, &prev)
	switch {
	case err == nil:
		if wait := prev.SentAt.Add(s.cooldown).Sub(s.now()); wait > 0 {
			metrics.OTPSends.WithLabelValues("rate_limited").Inc()
			return commonerrors.NewOTPRateLimitedError(wait.Round(time.Second))
		}
	case !errors.Is(err, database.ErrCacheMiss):
		return commonerrors.NewDatabaseError("load otp", err)
	}

	code, err := s.generate()
	if err != nil {
		return commonerrors.NewExternalServiceError("otp", fmt.Errorf("generate otp: %w", err))
	}
	pending := pendingOTP{Code: code, SentAt: s.now()}
	if err := s.redis.SetJSON(ctx, otpKeyPrefix+phone, pending, s.ttl); err != nil {
		return commonerrors.NewDatabaseError("store otp", err)
	}
	if err := s.redis.Del(ctx, otpKeyPrefix+phone+otpVerifiedSuffix, otpAttemptsPrefix+phone); err != nil {
		return commonerrors.NewDatabaseError("reset otp", err)
	}

	if _, err := s.sms.SendSMS(ctx, phone, otpMessage+" "+code); err != nil {
		metrics.OTPSends.WithLabelValues("failed").Inc()
		return err
	}
	metrics.OTPSends.WithLabelValues("sent").Inc()
	s.logger.Info("OTP sent", map[string]interface{}{"phone": phone})
	return nil
}

// Verify consumes the pending code for phone when code matches it. After
// MaxVerifyAttempts mismatches the code is discarded and a new one must be
// requested.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	var pending pendingOTP
	err := s.redis.GetJSON(ctx, otpKeyPrefix+phone, &pending)
	if errors.Is(err, database.ErrCacheMiss) {
		return commonerrors.Wrap(commonerrors.NewOTPInvalidError(), ErrOTPInvalid)
	}
	if err != nil {
		return commonerrors.NewDatabaseError("load otp", err)
	}
	if code == "" || !auth.ConstantTimeEqual(pending.Code, code) {
		return s.recordMiss(ctx, phone)
	}

	if err := s.redis.Del(ctx, otpKeyPrefix+phone, otpAttemptsPrefix+phone); err != nil {
		return commonerrors.NewDatabaseError("consume otp", err)
	}
	return s.markVerified(ctx, phone)
}

func (s *OTPService) recordMiss(ctx context.Context, phone string) error {
	attempts, err := s.redis.Incr(ctx, otpAttemptsPrefix+phone, s.ttl)
	if err != nil {
		return commonerrors.NewDatabaseError("count otp attempts", err)
	}
	if attempts < MaxVerifyAttempts {
		return commonerrors.Wrap(commonerrors.NewOTPInvalidError(), ErrOTPInvalid)
	}

	if err := s.redis.Del(ctx, otpKeyPrefix+phone, otpAttemptsPrefix+phone); err != nil {
		return commonerrors.NewDatabaseError("discard otp", err)
	}
	s.logger.Warn("OTP locked after repeated mismatches", map[string]interface{}{"phone": phone, "attempts": attempts})
	return commonerrors.NewOTPAttemptsExceededError(int(attempts))
}

func (s *OTPService) markVerified(ctx context.Context, phone string) error {
	if err := s.redis.SetJSON(ctx, otpKeyPrefix+phone+otpVerifiedSuffix, true, verifiedTTL); err != nil {
		return commonerrors.NewDatabaseError("mark otp verified", err)
	}
	return nil
}

// Verified reports whether phone confirmed a code recently.
func (s *OTPService) Verified(ctx context.Context, phone string) (bool, error) {
	var ok bool
	err := s.redis.GetJSON(ctx, otpKeyPrefix+phone+otpVerifiedSuffix, &ok)
	if errors.Is(err, database.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, commonerrors.NewDatabaseError("load otp state", err)
	}
	return ok, nil
}

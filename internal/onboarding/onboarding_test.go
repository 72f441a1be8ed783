package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kredmitra/internal/common/database"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
)

// ==========================
// Test Helper Functions
// ==========================

type capturedSMS struct {
	phone, message string
}

type stubSMS struct {
	sent []capturedSMS
	err  error
}

func (s *stubSMS) SendSMS(_ context.Context, phone, message string) (*notify.Receipt, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, capturedSMS{phone: phone, message: message})
	return &notify.Receipt{Channel: notify.ChannelSMS}, nil
}

type stubScorer struct {
	app  *models.Application
	err  error
	runs int
	got  models.UserData
}

func (s *stubScorer) RunWeb(_ context.Context, user *models.UserData) (*models.Application, error) {
	s.runs++
	s.got = *user
	return s.app, s.err
}

type memoryUsers struct {
	records map[string]*models.UserRecord
}

func (m *memoryUsers) Get(_ context.Context, mobile string) (*models.UserRecord, error) {
	rec, ok := m.records[mobile]
	if !ok {
		return nil, commonerrors.NewUserNotFoundError(mobile)
	}
	return rec, nil
}

func (m *memoryUsers) Update(_ context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error) {
	rec, ok := m.records[mobile]
	if !ok {
		return nil, commonerrors.NewUserNotFoundError(mobile)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newOTPService(t *testing.T, sms SMSSender) (*OTPService, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := NewOTPService(rdb, sms, 5*time.Minute, 60*time.Second, logger.NewTestLogger(t))
	svc.now = c.now
	svc.generate = func() (string, error) { return "482913", nil }
	return svc, c
}

func validFarmer() *models.UserData {
	u, _ := Examples(ExampleFarmer)
	u.Consent = true
	u.OTPVerified = true
	return u
}

func scoredApp() *models.Application {
	return &models.Application{
		Channel:     models.ChannelWebApp,
		ScoreData:   &models.ScoreData{FinalScore: 731, FraudRisk: models.RiskLow},
		LoanOptions: []models.LoanOption{{Name: "Kisan Saathi Loan", Amount: 15000}},
	}
}

// ==========================
// Validation
// ==========================

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(u *models.UserData)
		validate func(t *testing.T, r *validation.ValidationResult)
	}{
		{
			name:   "complete farmer application",
			mutate: func(u *models.UserData) {},
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.True(t, r.Valid, r.GetErrorMessages())
				assert.Empty(t, r.Errors)
			},
		},
		{
			name:   "missing name",
			mutate: func(u *models.UserData) { u.Name = "" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.False(t, r.Valid)
				assert.True(t, r.HasErrors("name"))
			},
		},
		{
			name:   "unknown profession",
			mutate: func(u *models.UserData) { u.Profession = "Astronaut" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.True(t, r.HasErrors("profession"))
			},
		},
		{
			name:   "short aadhaar",
			mutate: func(u *models.UserData) { u.Aadhaar = "12341234" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				errs := r.GetErrorsForField("aadhaar")
				require.Len(t, errs, 1)
				assert.Equal(t, MsgAadhaar, errs[0].Message)
			},
		},
		{
			name:   "bad pincode and phone",
			mutate: func(u *models.UserData) { u.Pincode = "4135"; u.Phone = "98765" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.True(t, r.HasErrors("pincode"))
				assert.True(t, r.HasErrors("phone"))
			},
		},
		{
			name:   "invalid ifsc",
			mutate: func(u *models.UserData) { u.IFSCCode = "SBIN300" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				errs := r.GetErrorsForField("ifscCode")
				require.Len(t, errs, 1)
				assert.Equal(t, MsgIFSC, errs[0].Message)
			},
		},
		{
			name:   "missing bank details",
			mutate: func(u *models.UserData) { u.BankName = ""; u.AccountNumber = " " },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.Equal(t, CodeRequired, r.GetErrorsForField("bankName")[0].Code)
				assert.Equal(t, MsgAccountNumber, r.GetErrorsForField("accountNumber")[0].Message)
			},
		},
		{
			name:   "non numeric account number",
			mutate: func(u *models.UserData) { u.AccountNumber = "1122ab" },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.Equal(t, MsgNumbersOnly, r.GetErrorsForField("accountNumber")[0].Message)
			},
		},
		{
			name:   "otp not verified",
			mutate: func(u *models.UserData) { u.OTPVerified = false },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				assert.Equal(t, CodeOTPRequired, r.GetErrorsForField("otp")[0].Code)
			},
		},
		{
			name:   "consent withheld",
			mutate: func(u *models.UserData) { u.Consent = false },
			validate: func(t *testing.T, r *validation.ValidationResult) {
				errs := r.GetErrorsForField("consent")
				require.Len(t, errs, 1)
				assert.Equal(t, MsgConsent, errs[0].Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validFarmer()
			tt.mutate(u)
			tt.validate(t, Validate(u))
		})
	}
}

// ==========================
// OTP
// ==========================

func TestOTPService_SendAndVerify(t *testing.T) {
	sms := &stubSMS{}
	svc, _ := newOTPService(t, sms)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "9876543210"))
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "9876543210", sms.sent[0].phone)
	assert.Equal(t, "Your OTP is: 482913", sms.sent[0].message)

	verified, err := svc.Verified(ctx, "9876543210")
	require.NoError(t, err)
	assert.False(t, verified)

	err = svc.Verify(ctx, "9876543210", "000000")
	assert.ErrorIs(t, err, ErrOTPInvalid)
	assert.Equal(t, commonerrors.ErrCodeOTPInvalid, commonerrors.CodeOf(err))

	require.NoError(t, svc.Verify(ctx, "9876543210", "482913"))
	verified, err = svc.Verified(ctx, "9876543210")
	require.NoError(t, err)
	assert.True(t, verified)

	// the code is single use
	assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "482913"), ErrOTPInvalid)
}

func TestOTPService_Cooldown(t *testing.T) {
	sms := &stubSMS{}
	svc, c := newOTPService(t, sms)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "9876543211"))

	c.t = c.t.Add(20 * time.Second)
	err := svc.Send(ctx, "9876543211")
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeOTPRateLimited, commonerrors.CodeOf(err))
	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Contains(t, stdErr.Details, "40s")

	c.t = c.t.Add(41 * time.Second)
	require.NoError(t, svc.Send(ctx, "9876543211"))
	assert.Len(t, sms.sent, 2)
}

func TestOTPService_AttemptLockout(t *testing.T) {
	svc, c := newOTPService(t, &stubSMS{})
	ctx := context.Background()
	require.NoError(t, svc.Send(ctx, "9876543212"))

	for i := 1; i < MaxVerifyAttempts; i++ {
		assert.ErrorIs(t, svc.Verify(ctx, "9876543212", "000000"), ErrOTPInvalid, "attempt %d", i)
	}

	err := svc.Verify(ctx, "9876543212", "000000")
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeOTPRateLimited, commonerrors.CodeOf(err))

	// the correct code no longer works once the pending one is burned
	assert.ErrorIs(t, svc.Verify(ctx, "9876543212", "482913"), ErrOTPInvalid)

	// a fresh code starts a fresh attempt window
	c.t = c.t.Add(2 * time.Minute)
	require.NoError(t, svc.Send(ctx, "9876543212"))
	assert.ErrorIs(t, svc.Verify(ctx, "9876543212", "111111"), ErrOTPInvalid)
	require.NoError(t, svc.Verify(ctx, "9876543212", "482913"))
}

func TestOTPService_SendMetrics(t *testing.T) {
	tests := []struct {
		name    string
		sms     *stubSMS
		sends   int
		outcome string
	}{
		{name: "delivered", sms: &stubSMS{}, sends: 1, outcome: "sent"},
		{name: "inside cooldown", sms: &stubSMS{}, sends: 2, outcome: "rate_limited"},
		{
			name:    "sms failure",
			sms:     &stubSMS{err: commonerrors.NewNotificationSendFailedError(notify.ChannelSMS, errors.New("throttled"))},
			sends:   1,
			outcome: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newOTPService(t, tt.sms)
			before := testutil.ToFloat64(metrics.OTPSends.WithLabelValues(tt.outcome))

			for i := 0; i < tt.sends; i++ {
				_ = svc.Send(context.Background(), "9876543213")
			}
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.OTPSends.WithLabelValues(tt.outcome)))
		})
	}
}

func TestOTPService_Errors(t *testing.T) {
	t.Run("invalid phone", func(t *testing.T) {
		svc, _ := newOTPService(t, &stubSMS{})
		err := svc.Send(context.Background(), "12345")
		assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
	})

	t.Run("verify without pending code", func(t *testing.T) {
		svc, _ := newOTPService(t, &stubSMS{})
		assert.ErrorIs(t, svc.Verify(context.Background(), "9876543210", "123456"), ErrOTPInvalid)
	})

	t.Run("sms failure surfaces", func(t *testing.T) {
		smsErr := commonerrors.NewNotificationSendFailedError(notify.ChannelSMS, errors.New("throttled"))
		svc, _ := newOTPService(t, &stubSMS{err: smsErr})
		err := svc.Send(context.Background(), "9876543210")
		assert.Equal(t, commonerrors.ErrCodeNotificationFailed, commonerrors.CodeOf(err))
	})
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.True(t, validation.IsDigits(code, 6))
		assert.NotEqual(t, byte('0'), code[0])
	}
}

// ==========================
// Hints and examples
// ==========================

func TestStatementHints(t *testing.T) {
	tests := []struct {
		text string
		want Hints
	}{
		{"", Hints{}},
		{"I EARN about 500 a day", Hints{Income: true}},
		{"Rent and food take most of it", Hints{Expenses: true}},
		{"My salary goes to bills, I save a little in a deposit", Hints{Income: true, Expenses: true, Savings: true}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, StatementHints(tt.text))
		})
	}
}

func TestExamples(t *testing.T) {
	for _, kind := range []string{ExampleFarmer, ExampleGig, "Small Farmer", " GIG WORKER "} {
		u, ok := Examples(kind)
		require.True(t, ok, kind)
		assert.NoError(t, VerifyIdentity(u), kind)
	}

	_, ok := Examples("astronaut")
	assert.False(t, ok)

	farmer, _ := Examples(ExampleFarmer)
	assert.Equal(t, "413521", farmer.Pincode)
	assert.Equal(t, "SBIN0000300", farmer.IFSCCode)
}

// ==========================
// Submit
// ==========================

func newService(t *testing.T, scorer *stubScorer) (*Service, *memoryUsers) {
	t.Helper()
	otp, _ := newOTPService(t, &stubSMS{})
	users := &memoryUsers{records: map[string]*models.UserRecord{
		"9000000001": {FirstName: "Ramesh", LastName: "Patil", Mobile: "9000000001", AppStep: models.StepOnboarding},
	}}
	return NewService(otp, scorer, users, logger.NewTestLogger(t)), users
}

func TestService_Submit(t *testing.T) {
	tests := []struct {
		name     string
		scorer   *stubScorer
		prefill  bool
		mutate   func(u *models.UserData)
		validate func(t *testing.T, app *models.Application, err error, scorer *stubScorer, users *memoryUsers)
	}{
		{
			name:    "scored and persisted",
			scorer:  &stubScorer{app: scoredApp()},
			prefill: true,
			validate: func(t *testing.T, app *models.Application, err error, scorer *stubScorer, users *memoryUsers) {
				require.NoError(t, err)
				assert.Equal(t, 731, app.ScoreData.FinalScore)
				rec := users.records["9000000001"]
				assert.Equal(t, models.StepScoreResult, rec.AppStep)
				assert.Equal(t, models.ChannelWebApp, rec.Channel)
				assert.Equal(t, "413521", rec.Pincode)
				assert.Equal(t, 731, rec.CreditScore)
				assert.Equal(t, models.RiskLow, rec.RiskLevel)
				assert.Same(t, app, rec.Application)
				assert.Equal(t, "Ramesh Patil", scorer.got.Name)
			},
		},
		{
			name:   "client claims otp without verifying",
			scorer: &stubScorer{app: scoredApp()},
			validate: func(t *testing.T, _ *models.Application, err error, scorer *stubScorer, _ *memoryUsers) {
				assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
				assert.Contains(t, err.Error(), "Input validation failed")
				assert.Zero(t, scorer.runs)
			},
		},
		{
			name:    "identity mismatch",
			scorer:  &stubScorer{app: scoredApp()},
			prefill: true,
			mutate:  func(u *models.UserData) { u.AccountNumber = "000011112222" },
			validate: func(t *testing.T, _ *models.Application, err error, scorer *stubScorer, _ *memoryUsers) {
				assert.Equal(t, commonerrors.ErrCodeVerificationFailed, commonerrors.CodeOf(err))
				assert.Zero(t, scorer.runs)
			},
		},
		{
			name:    "pipeline failure",
			scorer:  &stubScorer{err: commonerrors.NewAnalysisFailedError(errors.New("model down"))},
			prefill: true,
			validate: func(t *testing.T, _ *models.Application, err error, scorer *stubScorer, users *memoryUsers) {
				assert.Equal(t, commonerrors.ErrCodeAnalysisFailed, commonerrors.CodeOf(err))
				assert.Equal(t, models.StepOnboarding, users.records["9000000001"].AppStep)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users := newService(t, tt.scorer)
			ctx := context.Background()

			var user *models.UserData
			if tt.prefill {
				var err error
				user, err = svc.Prefill(ctx, ExampleFarmer)
				require.NoError(t, err)
			} else {
				user, _ = Examples(ExampleFarmer)
				user.OTPVerified = true
			}
			user.Consent = true
			if tt.mutate != nil {
				tt.mutate(user)
			}

			app, err := svc.Submit(ctx, "9000000001", user)
			tt.validate(t, app, err, tt.scorer, users)
		})
	}
}

func TestService_SubmitUnknownAccount(t *testing.T) {
	scorer := &stubScorer{app: scoredApp()}
	svc, _ := newService(t, scorer)
	ctx := context.Background()

	user, err := svc.Prefill(ctx, ExampleFarmer)
	require.NoError(t, err)
	user.Consent = true

	_, err = svc.Submit(ctx, "9000000002", user)
	assert.Equal(t, commonerrors.ErrCodeUserNotFound, commonerrors.CodeOf(err))
	assert.Zero(t, scorer.runs)
}

func TestService_PrefillUnknown(t *testing.T) {
	svc, _ := newService(t, &stubScorer{})
	_, err := svc.Prefill(context.Background(), "astronaut")
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
}

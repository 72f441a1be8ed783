package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/config"
	"kredmitra/internal/common/database"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
	"kredmitra/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type memoryUsers map[string]*models.UserRecord

func (m memoryUsers) Create(_ context.Context, rec *models.UserRecord) error {
	if _, ok := m[rec.Mobile]; ok {
		return commonerrors.Wrap(commonerrors.NewUserExistsError(rec.Mobile), store.ErrUserExists)
	}
	m[rec.Mobile] = rec
	return nil
}

func (m memoryUsers) Get(_ context.Context, mobile string) (*models.UserRecord, error) {
	rec, ok := m[mobile]
	if !ok {
		return nil, commonerrors.Wrap(commonerrors.NewUserNotFoundError(mobile), store.ErrUserNotFound)
	}
	return rec, nil
}

func newService(t *testing.T) (*Service, memoryUsers, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	users := memoryUsers{}
	admin := config.AuthConfig{AdminEmail: "ops@kredmitra.in", AdminPassword: "123456", AdminFirstName: "SNEHA"}
	svc := NewService(users, store.NewSessions(rdb, time.Hour), auth.NewHasher(bcrypt.MinCost), admin, logger.NewTestLogger(t))
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC) }
	return svc, users, mr
}

func signupRequest() SignupRequest {
	return SignupRequest{
		FirstName:       "Anita",
		LastName:        "Devi",
		DOB:             "1994-07-21",
		Mobile:          "9123456780",
		Password:        "chai4life",
		ConfirmPassword: "chai4life",
	}
}

// ==========================
// Signup
// ==========================

func TestService_Signup(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *SignupRequest)
		validate func(t *testing.T, sess *models.Session, rec *models.UserRecord, err error, users memoryUsers)
	}{
		{
			name:   "new account gets defaults",
			mutate: func(r *SignupRequest) {},
			validate: func(t *testing.T, sess *models.Session, rec *models.UserRecord, err error, users memoryUsers) {
				require.NoError(t, err)
				assert.Equal(t, "9123456780", sess.Mobile)
				assert.False(t, sess.IsAdmin)
				assert.Empty(t, rec.PasswordHash)

				stored := users["9123456780"]
				require.NotNil(t, stored)
				assert.NotEqual(t, "chai4life", stored.PasswordHash)
				assert.Equal(t, DefaultCreditScore, stored.CreditScore)
				assert.Equal(t, models.RiskMedium, stored.RiskLevel)
				assert.Equal(t, models.StepOnboarding, stored.AppStep)
				assert.Equal(t, models.LoanNone, stored.LoanStatus)
				assert.Equal(t, DefaultPincode, stored.Pincode)
				assert.Equal(t, "2026-04-02", stored.LastActivity)
				assert.Equal(t, 100, stored.SimAgeDays)
				require.Len(t, stored.WellnessBadges, 5)
				assert.True(t, stored.WellnessBadges[0].Achieved)
				assert.False(t, stored.WellnessBadges[1].Achieved)
				assert.NotNil(t, stored.RiskFlags)
			},
		},
		{
			name:   "missing last name",
			mutate: func(r *SignupRequest) { r.LastName = " " },
			validate: func(t *testing.T, _ *models.Session, _ *models.UserRecord, err error, users memoryUsers) {
				stdErr, ok := commonerrors.As(err)
				require.True(t, ok)
				assert.Equal(t, MsgAllFieldsRequired, stdErr.Details)
				assert.Empty(t, users)
			},
		},
		{
			name:   "password confirmation differs",
			mutate: func(r *SignupRequest) { r.ConfirmPassword = "chai4lyfe" },
			validate: func(t *testing.T, _ *models.Session, _ *models.UserRecord, err error, _ memoryUsers) {
				stdErr, ok := commonerrors.As(err)
				require.True(t, ok)
				assert.Equal(t, MsgPasswordMismatch, stdErr.Details)
			},
		},
		{
			name:   "short mobile",
			mutate: func(r *SignupRequest) { r.Mobile = "91234" },
			validate: func(t *testing.T, _ *models.Session, _ *models.UserRecord, err error, _ memoryUsers) {
				assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _ := newService(t)
			req := signupRequest()
			tt.mutate(&req)
			sess, rec, err := svc.Signup(context.Background(), req)
			tt.validate(t, sess, rec, err, users)
		})
	}
}

func TestService_SignupDuplicate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, signupRequest())
	assert.ErrorIs(t, err, store.ErrUserExists)
	assert.Equal(t, commonerrors.ErrCodeUserExists, commonerrors.CodeOf(err))
}

// ==========================
// Login and sessions
// ==========================

func TestService_LoginAuthenticateLogout(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	sess, rec, err := svc.Login(ctx, "9123456780", "chai4life")
	require.NoError(t, err)
	assert.Equal(t, "Anita", rec.FirstName)
	assert.Len(t, sess.Token, 64)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "9123456780", got.Mobile)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestService_LoginFailures(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	tests := []struct {
		name     string
		mobile   string
		password string
		code     commonerrors.ErrorCode
	}{
		{"wrong password", "9123456780", "chai5life", commonerrors.ErrCodeInvalidCredentials},
		{"unknown mobile", "9000000000", "chai4life", commonerrors.ErrCodeInvalidCredentials},
		{"empty password", "9123456780", "", commonerrors.ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tt.mobile, tt.password)
			assert.Equal(t, tt.code, commonerrors.CodeOf(err))
		})
	}
}

func TestService_SessionExpires(t *testing.T) {
	svc, _, mr := newService(t)
	ctx := context.Background()
	sess, _, err := svc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.Equal(t, commonerrors.ErrCodeSessionNotFound, commonerrors.CodeOf(err))
}

func TestService_AdminLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.AdminLogin(ctx, "OPS@kredmitra.in", "123456")
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin)
	assert.Equal(t, "SNEHA", sess.FirstName)

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = svc.AdminLogin(ctx, "ops@kredmitra.in", "654321")
	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeInvalidCredentials, stdErr.Code)
	assert.Equal(t, MsgInvalidAdmin, stdErr.Message)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

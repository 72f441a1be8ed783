// internal/workers/engagement/send-vouching-sms/handler_test.go
package sendvouchingsms

import (
	"context"
	"testing"
	"time"

	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Community Implementation
// ==========================

type MockCommunity struct {
	mock.Mock
}

func (m *MockCommunity) RequestVouch(ctx context.Context, applicantMobile, applicantName, voucherPhone string) (string, error) {
	args := m.Called(ctx, applicantMobile, applicantName, voucherPhone)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, community VouchRequester) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, community, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		setup    func(m *MockCommunity)
		validate func(t *testing.T, output *Output, err error)
	}{
		{
			name:  "vouch requested",
			input: &Input{ApplicantMobile: "9876543210", ApplicantName: " Ramesh Kumar ", VoucherPhone: "9876543211"},
			setup: func(m *MockCommunity) {
				m.On("RequestVouch", mock.Anything, "9876543210", "Ramesh Kumar", "9876543211").
					Return("Ramesh Kumar has named you as a reference on KredMitra.", nil)
			},
			validate: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.True(t, output.VouchRequested)
				assert.Contains(t, output.Message, "Ramesh Kumar")
			},
		},
		{
			name:  "missing applicant name",
			input: &Input{ApplicantMobile: "9876543210", ApplicantName: "  ", VoucherPhone: "9876543211"},
			setup: func(*MockCommunity) {},
			validate: func(t *testing.T, output *Output, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
			},
		},
		{
			name:  "service rejection is passed through",
			input: &Input{ApplicantMobile: "9876543210", ApplicantName: "Ramesh Kumar", VoucherPhone: "9876543210"},
			setup: func(m *MockCommunity) {
				m.On("RequestVouch", mock.Anything, "9876543210", "Ramesh Kumar", "9876543210").
					Return("", errors.NewValidationError("applicants cannot vouch for themselves"))
			},
			validate: func(t *testing.T, output *Output, err error) {
				require.Error(t, err)
				assert.Nil(t, output)
				assert.Equal(t, errors.ErrCodeValidationFailed, errors.CodeOf(err))
			},
		},
		{
			name:  "sms failure",
			input: &Input{ApplicantMobile: "9876543210", ApplicantName: "Ramesh Kumar", VoucherPhone: "9876543211"},
			setup: func(m *MockCommunity) {
				m.On("RequestVouch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", errors.NewNotificationSendFailedError("sms", assert.AnError))
			},
			validate: func(t *testing.T, output *Output, err error) {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeNotificationFailed, errors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			community := &MockCommunity{}
			tt.setup(community)

			output, err := createTestHandler(t, community).Execute(context.Background(), tt.input)
			tt.validate(t, output, err)
			community.AssertExpectations(t)
		})
	}
}

// internal/workers/scoring/verify-applicant/handler_test.go
package verifyapplicant

import (
	"context"
	"testing"
	"time"

	"kredmitra/internal/common/config"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, logger.NewTestLogger(t))
}

func createInput(name, aadhaar, phone, account string) *Input {
	return &Input{Name: name, Aadhaar: aadhaar, Phone: phone, AccountNumber: account}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		validate func(t *testing.T, output *Output, err error)
	}{
		{
			name:  "known identity",
			input: createInput("Ramesh Kumar", "123412341234", "9876543210", "112233445566"),
			validate: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.True(t, output.IdentityVerified)
			},
		},
		{
			name:  "name compared case-insensitively",
			input: createInput("  priya singh ", "432143214321", "9876543211", "998877665544"),
			validate: func(t *testing.T, output *Output, err error) {
				require.NoError(t, err)
				assert.True(t, output.IdentityVerified)
			},
		},
		{
			name:  "mixed tuple is rejected",
			input: createInput("Ramesh Kumar", "432143214321", "9876543210", "112233445566"),
			validate: func(t *testing.T, output *Output, err error) {
				require.Error(t, err)
				assert.Nil(t, output)
				assert.Equal(t, errors.ErrCodeVerificationFailed, errors.CodeOf(err))
			},
		},
		{
			name:  "missing account number",
			input: createInput("Ramesh Kumar", "123412341234", "9876543210", ""),
			validate: func(t *testing.T, output *Output, err error) {
				require.Error(t, err)
				bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
				assert.Equal(t, string(errors.ErrCodeVerificationFailed), bpmn.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := createTestHandler(t).Execute(context.Background(), tt.input)
			tt.validate(t, output, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, LoadConfig(nil).Timeout)

	cfg := &config.Config{Workers: map[string]config.WorkerConfig{TaskType: {Timeout: 2500}}}
	assert.Equal(t, 2500*time.Millisecond, LoadConfig(cfg).Timeout)
}

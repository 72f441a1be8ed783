package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
)

// ==========================
// Test Helper Functions
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func enabledConfig() Config {
	return Config{
		SMSEnabled:   true,
		EmailEnabled: true,
		SenderID:     "KMITRA",
		CountryCode:  "+91",
		FromEmail:    "no-reply@kredmitra.example",
		OpsAddress:   "ops@kredmitra.example",
	}
}

func TestSendSMS(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		phone    string
		publish  func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
		validate func(t *testing.T, r *Receipt, err error, sent *sns.PublishInput)
	}{
		{
			name:  "local number gets country code",
			cfg:   enabledConfig(),
			phone: "9876543210",
			validate: func(t *testing.T, r *Receipt, err error, sent *sns.PublishInput) {
				require.NoError(t, err)
				assert.True(t, r.Delivered)
				assert.Equal(t, "sns-1", r.MessageID)
				assert.NotEmpty(t, r.ID)
				require.NotNil(t, sent)
				assert.Equal(t, "+919876543210", *sent.PhoneNumber)
				assert.Equal(t, "KMITRA", *sent.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
			},
		},
		{
			name:  "international number kept",
			cfg:   enabledConfig(),
			phone: "+447700900123",
			validate: func(t *testing.T, r *Receipt, err error, sent *sns.PublishInput) {
				require.NoError(t, err)
				assert.Equal(t, "+447700900123", *sent.PhoneNumber)
			},
		},
		{
			name:  "disabled channel logs only",
			cfg:   Config{CountryCode: "+91"},
			phone: "9876543210",
			validate: func(t *testing.T, r *Receipt, err error, sent *sns.PublishInput) {
				require.NoError(t, err)
				assert.False(t, r.Delivered)
				assert.Nil(t, sent)
			},
		},
		{
			name:  "publish failure",
			cfg:   enabledConfig(),
			phone: "9876543210",
			publish: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
				return nil, errors.New("throttled")
			},
			validate: func(t *testing.T, r *Receipt, err error, sent *sns.PublishInput) {
				assert.Nil(t, r)
				assert.Equal(t, commonerrors.ErrCodeNotificationFailed, commonerrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent *sns.PublishInput
			mock := &MockSNSService{PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
				sent = params
				if tt.publish != nil {
					return tt.publish(ctx, params, optFns...)
				}
				return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
			}}

			n := New(tt.cfg, &MockSESService{}, mock, logger.NewTestLogger(t))
			r, err := n.SendSMS(context.Background(), tt.phone, "Your OTP is 123456")
			tt.validate(t, r, err, sent)
		})
	}
}

func TestEmailOps(t *testing.T) {
	var sent *ses.SendEmailInput
	mock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		sent = params
		return &ses.SendEmailOutput{MessageId: aws.String("ses-42")}, nil
	}}
	before := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(ChannelEmail, "success"))

	n := New(enabledConfig(), mock, &MockSNSService{}, logger.NewTestLogger(t))
	r, err := n.EmailOps(context.Background(), "Crisis plan approved", "Suggestion approved for GIRIJESH.")
	require.NoError(t, err)

	assert.Equal(t, "ses-42", r.MessageID)
	assert.Equal(t, []string{"ops@kredmitra.example"}, sent.Destination.ToAddresses)
	assert.Equal(t, "no-reply@kredmitra.example", *sent.Source)
	assert.Equal(t, "Crisis plan approved", *sent.Message.Subject.Data)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(ChannelEmail, "success")))
}

func TestEmail_NoRecipientSkips(t *testing.T) {
	called := false
	mock := &MockSESService{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		called = true
		return &ses.SendEmailOutput{}, nil
	}}
	cfg := enabledConfig()
	cfg.OpsAddress = ""

	r, err := New(cfg, mock, nil, logger.NewNoOpLogger()).EmailOps(context.Background(), "s", "b")
	require.NoError(t, err)
	assert.False(t, r.Delivered)
	assert.False(t, called)
}

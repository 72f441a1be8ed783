// Package notify sends SMS through SNS and operator email through SES.
package notify

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"kredmitra/internal/common/config"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the subset of the SNS client used here.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	SMSEnabled   bool
	EmailEnabled bool
	SenderID     string
	CountryCode  string
	FromEmail    string
	OpsAddress   string
}

func ConfigFrom(cfg config.AWSConfig) Config {
	return Config{
		SMSEnabled:   cfg.SNS.Enabled,
		EmailEnabled: cfg.SES.Enabled,
		SenderID:     cfg.SNS.DefaultSMSSenderID,
		CountryCode:  cfg.SNS.CountryCode,
		FromEmail:    cfg.SES.FromEmail,
		OpsAddress:   cfg.SES.OpsAddress,
	}
}

// Receipt identifies one notification in the logs.
type Receipt struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	MessageID string `json:"messageId,omitempty"`
	Delivered bool   `json:"delivered"`
}

type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

// New builds a notifier. A disabled channel logs the message instead of
// sending it.
func New(cfg Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{config: cfg, ses: sesClient, sns: snsClient, logger: log}
}

// SendSMS texts phone. Ten-digit local numbers get the configured country
// code.
func (n *Notifier) SendSMS(ctx context.Context, phone, message string) (*Receipt, error) {
	receipt := &Receipt{ID: uuid.NewString(), Channel: ChannelSMS}
	to := n.e164(phone)

	if !n.config.SMSEnabled || n.sns == nil {
		n.logger.Info("SMS delivery disabled, message not sent", map[string]interface{}{
			"notificationId": receipt.ID,
			"to":             to,
			"message":        message,
		})
		metrics.NotificationsSent.WithLabelValues(ChannelSMS, "skipped").Inc()
		return receipt, nil
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if n.config.SenderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(n.config.SenderID),
		}
	}

	out, err := n.sns.Publish(ctx, input)
	metrics.NotificationsSent.WithLabelValues(ChannelSMS, metrics.Outcome(err)).Inc()
	if err != nil {
		n.logger.Error("SMS send failed", map[string]interface{}{
			"notificationId": receipt.ID,
			"error":          err.Error(),
		})
		return nil, commonerrors.NewNotificationSendFailedError(ChannelSMS, err)
	}

	receipt.Delivered = true
	if out != nil && out.MessageId != nil {
		receipt.MessageID = *out.MessageId
	}
	n.logger.Info("SMS sent", map[string]interface{}{
		"notificationId": receipt.ID,
		"messageId":      receipt.MessageID,
	})
	return receipt, nil
}

// Email sends a plain-text message.
func (n *Notifier) Email(ctx context.Context, to, subject, body string) (*Receipt, error) {
	receipt := &Receipt{ID: uuid.NewString(), Channel: ChannelEmail}

	if !n.config.EmailEnabled || n.ses == nil || to == "" {
		n.logger.Info("Email delivery disabled, message not sent", map[string]interface{}{
			"notificationId": receipt.ID,
			"to":             to,
			"subject":        subject,
		})
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, "skipped").Inc()
		return receipt, nil
	}

	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	metrics.NotificationsSent.WithLabelValues(ChannelEmail, metrics.Outcome(err)).Inc()
	if err != nil {
		n.logger.Error("Email send failed", map[string]interface{}{
			"notificationId": receipt.ID,
			"error":          err.Error(),
		})
		return nil, commonerrors.NewNotificationSendFailedError(ChannelEmail, err)
	}

	receipt.Delivered = true
	if out != nil && out.MessageId != nil {
		receipt.MessageID = *out.MessageId
	}
	return receipt, nil
}

// EmailOps sends an alert to the configured operations mailbox.
func (n *Notifier) EmailOps(ctx context.Context, subject, body string) (*Receipt, error) {
	return n.Email(ctx, n.config.OpsAddress, subject, body)
}

func (n *Notifier) e164(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if validation.ValidateMobile(phone) {
		return n.config.CountryCode + phone
	}
	return phone
}

// internal/notify/notifier.go

// Package notify delivers post-sanction notifications. Delivery is best
// effort: a failed notification is logged and never fails the sanction
// transition itself.
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"loanwise-engine/internal/common/config"
	"loanwise-engine/internal/common/logger"
)

// Sanction describes a sanctioned application for notification purposes.
type Sanction struct {
	ApplicationID string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	LetterHTML    string
	Principal     int64
	EMI           int64
}

// Notifier is invoked by the stage engine after a sanction lands.
type Notifier interface {
	SanctionIssued(ctx context.Context, s Sanction)
}

// NoopNotifier discards notifications. Used when delivery is disabled
// and in tests.
type NoopNotifier struct{}

func (NoopNotifier) SanctionIssued(context.Context, Sanction) {}

// EmailSender matches the SES client surface used here.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender matches the SNS client surface used here.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// AWSNotifier emails the sanction letter via SES and texts a short
// alert via SNS, each guarded by its own enable flag.
type AWSNotifier struct {
	cfg    config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewAWSNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

func (n *AWSNotifier) SanctionIssued(ctx context.Context, s Sanction) {
	if n.cfg.Email.Enabled && n.email != nil && s.CustomerEmail != "" {
		n.sendEmail(ctx, s)
	}
	if n.cfg.SMS.Enabled && n.sms != nil && s.CustomerPhone != "" {
		n.sendSMS(ctx, s)
	}
}

func (n *AWSNotifier) sendEmail(ctx context.Context, s Sanction) {
	subject := fmt.Sprintf("Your loan %s has been sanctioned", s.ApplicationID)
	input := &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{s.CustomerEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Html: &sestypes.Content{Data: awssdk.String(s.LetterHTML)},
			},
		},
	}
	if _, err := n.email.SendEmail(ctx, input); err != nil {
		n.logger.Warn("sanction email delivery failed", map[string]interface{}{
			"error":         err,
			"applicationId": s.ApplicationID,
		})
		return
	}
	n.logger.Info("sanction letter emailed", map[string]interface{}{
		"applicationId": s.ApplicationID,
	})
}

func (n *AWSNotifier) sendSMS(ctx context.Context, s Sanction) {
	message := fmt.Sprintf(
		"LoanWise: your loan %s is sanctioned. Amount Rs.%d, EMI Rs.%d/month. Letter sent to your email.",
		s.ApplicationID, s.Principal, s.EMI,
	)
	input := &sns.PublishInput{
		PhoneNumber: awssdk.String("+91" + s.CustomerPhone),
		Message:     awssdk.String(message),
	}
	if n.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(n.cfg.SMS.SenderID),
			},
		}
	}
	if _, err := n.sms.Publish(ctx, input); err != nil {
		n.logger.Warn("sanction SMS delivery failed", map[string]interface{}{
			"error":         err,
			"applicationId": s.ApplicationID,
		})
		return
	}
	n.logger.Info("sanction SMS sent", map[string]interface{}{
		"applicationId": s.ApplicationID,
	})
}

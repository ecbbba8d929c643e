package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	logrus "github.com/sirupsen/logrus"
)

// EmailSender delivers emails through AWS SES v2. It is used both for call
// reminders (couriers without a linked Telegram chat) and for account
// emails (activation, password reset).
type EmailSender struct {
	client    *sesv2.Client
	fromEmail string
}

// EmailServiceInterface is what the user service depends on for account emails.
type EmailServiceInterface interface {
	SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error
}

// NewEmailSender creates an SES-backed sender. Credentials are loaded from
// the environment.
func NewEmailSender(ctx context.Context, region, fromEmail string) (*EmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return &EmailSender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}, nil
}

// SendEmail sends one email using the AWS SES v2 API.
func (s *EmailSender) SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &s.fromEmail,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    &subject,
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    &plainTextContent,
						Charset: aws.String("UTF-8"),
					},
					Html: &types.Content{
						Data:    &htmlContent,
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		logrus.WithError(err).Errorf("failed to send email to %s", to)
		return err
	}

	logrus.Infof("email sent to %s", to)
	return nil
}

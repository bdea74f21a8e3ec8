package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/leadbridge-au/leadbridge/pkg/logging"
)

// SESAlerter emails operator alerts via AWS SES.
type SESAlerter struct {
	client *sesv2.Client
	from   string
	to     string
	logger *logging.Logger
}

var _ Alerter = (*SESAlerter)(nil)

// NewSESAlerter creates an SES-backed alerter. Returns nil when the client
// is absent so callers can wire it unconditionally.
func NewSESAlerter(client *sesv2.Client, from, to string, logger *logging.Logger) *SESAlerter {
	if client == nil || from == "" || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESAlerter{
		client: client,
		from:   from,
		to:     to,
		logger: logger,
	}
}

// Alert sends a plain-text operator email.
func (a *SESAlerter) Alert(ctx context.Context, subject, body string) error {
	if a == nil || a.client == nil {
		return fmt.Errorf("notify: SES alerter not configured")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(a.from),
		Destination: &types.Destination{
			ToAddresses: []string{a.to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := a.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("notify: failed to send alert email: %w", err)
	}
	a.logger.Info("ops alert sent", "to", a.to, "subject", subject)
	return nil
}

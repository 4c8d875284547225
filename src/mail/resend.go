package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendOutbox delivers drafts through the Resend API.
type ResendOutbox struct {
	client *resend.Client
	from   string
}

func NewResendOutbox(apiKey, from string) (*ResendOutbox, error) {
	if apiKey == "" {
		return nil, errors.New("resend: api key is required")
	}
	if from == "" {
		return nil, errors.New("resend: from address is required")
	}
	return &ResendOutbox{client: resend.NewClient(apiKey), from: from}, nil
}

func (o *ResendOutbox) Send(ctx context.Context, d Draft) (string, error) {
	if d.To == "" {
		return "", errors.New("resend: draft has no recipient")
	}
	resp, err := o.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    o.from,
		To:      []string{d.To},
		Subject: d.Subject,
		Text:    d.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}
	return resp.Id, nil
}

var _ Outbox = (*ResendOutbox)(nil)

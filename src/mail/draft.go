// Package mail holds generated drafts and the outboxes that deliver them.
package mail

import (
	"context"
	"fmt"
)

// Draft is a generated reply. It is shown to a human and may be fed back
// into template refinement.
type Draft struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (d Draft) String() string {
	return fmt.Sprintf("Subject: %s\n\n%s", d.Subject, d.Body)
}

// Outbox delivers approved drafts.
type Outbox interface {
	Send(ctx context.Context, d Draft) (id string, err error)
}

package notify

import (
	"context"
	"fmt"
	"time"
)

// Alert is an operational notification bound for a mailbox. It travels
// through the alert topic; the worker on the other end delivers it.
type Alert struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate does minimal field checks so the worker never handles a
// dirty message.
func (a Alert) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if a.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if a.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if a.Body == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

// Notifier dispatches alerts. The kafka producer implements it; tests
// swap in a recording fake.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

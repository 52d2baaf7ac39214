// Package notify delivers account lifecycle e-mails. The orchestrator only
// sees the Notifier interface; SMTP delivery, logging-only delivery and the
// timeout guard are interchangeable implementations.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
)

// Message is one outbound e-mail with an HTML body.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier delivers a Message. Implementations must honour ctx cancellation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type timeoutNotifier struct {
	next    Notifier
	timeout time.Duration
}

// WithTimeout bounds every delivery of next by timeout. A delivery that does
// not finish in time fails with an error wrapping common.ErrUpstream; the
// underlying call keeps its own cancelled context and is abandoned.
func WithTimeout(next Notifier, timeout time.Duration) Notifier {
	return &timeoutNotifier{next: next, timeout: timeout}
}

func (n *timeoutNotifier) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.next.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrUpstream, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: notification: %w", common.ErrUpstream, ctx.Err())
	}
}

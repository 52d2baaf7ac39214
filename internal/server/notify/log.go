package notify

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
)

// LogNotifier records messages in the log instead of sending them. It is
// used when no SMTP host is configured. Bodies are not logged because they
// carry tokens.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.Info(ctx, "notification suppressed: no SMTP host configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

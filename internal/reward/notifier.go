package reward

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier surfaces persistence failures to an operator.
type Notifier interface {
	Notify(ctx context.Context, subject string, err error)
}

// LogNotifier reports failures through the logger under the STORAGE tag.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

func (n LogNotifier) Notify(_ context.Context, subject string, err error) {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"tag":     "STORAGE",
		"subject": subject,
	}).WithError(err).Error("admin alert")
}

package notify

import (
	"context"

	reconapp "storeops-cloud/internal/reconciliation/application"
)

// MultiNotifier dispatches count alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []reconapp.AlertNotifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...reconapp.AlertNotifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards alerts to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, alert reconapp.CountAlert) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.Notify(ctx, alert)
		}
	}
}

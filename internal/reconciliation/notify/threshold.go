package notify

import (
	"context"

	reconapp "storeops-cloud/internal/reconciliation/application"
)

// ThresholdNotifier drops alerts below the location's variance thresholds
// before they reach the wrapped notifier. Regressive counts always pass.
type ThresholdNotifier struct {
	config reconapp.AlertConfig
	next   reconapp.AlertNotifier
}

// NewThresholdNotifier constructs a threshold filter around next.
func NewThresholdNotifier(config reconapp.AlertConfig, next reconapp.AlertNotifier) *ThresholdNotifier {
	return &ThresholdNotifier{config: config, next: next}
}

// Notify forwards alerts that clear the threshold.
func (t *ThresholdNotifier) Notify(ctx context.Context, alert reconapp.CountAlert) {
	if t == nil || t.next == nil {
		return
	}
	if !alert.Regressive {
		thresholds := t.config.ThresholdsForLocation(alert.Count.LocationID)
		if !thresholds.Exceeds(alert.Count.Variance, alert.Count.VarianceAmount) {
			return
		}
	}
	t.next.Notify(ctx, alert)
}

package intelligence

import "github.com/andresuchdata/replenish/internal/domain"

// UrgencyClassifier maps days of stock remaining to an urgency tier
type UrgencyClassifier struct {
	thresholds domain.UrgencyThresholds
}

func NewUrgencyClassifier(thresholds domain.UrgencyThresholds) (*UrgencyClassifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &UrgencyClassifier{thresholds: thresholds}, nil
}

// Classify returns the tier for daysRemaining. Boundaries belong to the more urgent tier;
// nil (no positive demand) is critical.
func (c *UrgencyClassifier) Classify(daysRemaining *float64) domain.Urgency {
	if daysRemaining == nil {
		return domain.UrgencyCritical
	}

	days := *daysRemaining
	switch {
	case days <= 0, days <= c.thresholds.CriticalDays:
		return domain.UrgencyCritical
	case days <= c.thresholds.WarningDays:
		return domain.UrgencyWarning
	case days <= c.thresholds.PlannedDays:
		return domain.UrgencyPlanned
	default:
		return domain.UrgencyMonitor
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSettings   = errors.New("invalid intelligence settings")
	ErrInvalidThresholds = errors.New("urgency thresholds must be strictly increasing")
)

// UrgencyThresholds are the days-of-stock boundaries of each urgency tier
type UrgencyThresholds struct {
	CriticalDays float64 `json:"critical_days" validate:"gte=0"`
	WarningDays  float64 `json:"warning_days"`
	PlannedDays  float64 `json:"planned_days"`
}

// Validate checks critical < warning < planned
func (t UrgencyThresholds) Validate() error {
	if err := ValidateStruct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	if t.CriticalDays >= t.WarningDays || t.WarningDays >= t.PlannedDays {
		return fmt.Errorf("%w: critical=%g warning=%g planned=%g",
			ErrInvalidThresholds, t.CriticalDays, t.WarningDays, t.PlannedDays)
	}
	return nil
}

// NotificationSettings selects which new suggestions are surfaced as notifications
type NotificationSettings struct {
	NotifyOnCritical bool `json:"notify_on_critical"`
	NotifyOnWarning  bool `json:"notify_on_warning"`
}

// IntelligenceSettings parameterize one calculation run
type IntelligenceSettings struct {
	Thresholds                     UrgencyThresholds    `json:"thresholds"`
	DefaultSafetyStockDays         float64              `json:"default_safety_stock_days" validate:"gte=0"`
	TargetDaysOfCover              float64              `json:"target_days_of_cover" validate:"gt=0"`
	IncludeInTransitInCalculations bool                 `json:"include_in_transit_in_calculations"`
	HistoryWindowDays              int                  `json:"history_window_days" validate:"gt=0"`
	MinObservationsMedium          int                  `json:"min_observations_medium" validate:"gt=0"`
	MinObservationsHigh            int                  `json:"min_observations_high" validate:"gtefield=MinObservationsMedium"`
	RecentActivityDays             int                  `json:"recent_activity_days" validate:"gte=0"`
	IncludeMonitorSuggestions      bool                 `json:"include_monitor_suggestions"`
	Notifications                  NotificationSettings `json:"notifications"`
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() IntelligenceSettings {
	return IntelligenceSettings{
		Thresholds: UrgencyThresholds{
			CriticalDays: 7,
			WarningDays:  14,
			PlannedDays:  30,
		},
		DefaultSafetyStockDays:         14,
		TargetDaysOfCover:              45,
		IncludeInTransitInCalculations: true,
		HistoryWindowDays:              30,
		MinObservationsMedium:          7,
		MinObservationsHigh:            21,
		RecentActivityDays:             7,
		Notifications: NotificationSettings{
			NotifyOnCritical: true,
		},
	}
}

// Validate rejects settings a run must not be started with
func (s IntelligenceSettings) Validate() error {
	if err := s.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := ValidateStruct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

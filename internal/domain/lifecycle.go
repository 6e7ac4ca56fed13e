package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// LifecycleAction is a user command on a suggestion
type LifecycleAction string

const (
	ActionAccept  LifecycleAction = "accept"
	ActionDismiss LifecycleAction = "dismiss"
	ActionSnooze  LifecycleAction = "snooze"
)

var ErrInvalidCommand = errors.New("invalid lifecycle command")

// LifecycleCommand asks for a status transition of one suggestion
type LifecycleCommand struct {
	Action       LifecycleAction `json:"action" validate:"oneof=accept dismiss snooze"`
	SuggestionID string          `json:"suggestion_id" validate:"required"`
	Quantity     *float64        `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Reason       string          `json:"reason,omitempty" validate:"max=500"`
	Until        *time.Time      `json:"until,omitempty" validate:"required_if=Action snooze"`
}

// Validate checks the command shape
func (c LifecycleCommand) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidCommand, c.Action, err)
	}
	return nil
}

// SuggestionFilter narrows suggestion listings
type SuggestionFilter struct {
	Statuses   []SuggestionStatus `json:"statuses"`
	Urgencies  []Urgency          `json:"urgencies"`
	LocationID string             `json:"location_id"`
	ProductID  string             `json:"product_id"`
	Type       SuggestionType     `json:"type"`
}

// Matches reports whether a suggestion passes the filter
func (f SuggestionFilter) Matches(s Suggestion) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
		return false
	}
	if len(f.Urgencies) > 0 && !slices.Contains(f.Urgencies, s.Urgency) {
		return false
	}
	if f.LocationID != "" && s.DestinationLocationID != f.LocationID {
		return false
	}
	if f.ProductID != "" && s.ProductID != f.ProductID {
		return false
	}
	if f.Type != "" && s.Type() != f.Type {
		return false
	}
	return true
}

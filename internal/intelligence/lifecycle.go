package intelligence

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/domain"
)

// IDGenerator allocates identities for new suggestions
type IDGenerator func() string

// LifecycleManager applies status transitions and carries suggestions across runs
type LifecycleManager struct {
	newID IDGenerator
}

// NewLifecycleManager returns a manager allocating ids with newID, or random UUIDs when nil
func NewLifecycleManager(newID IDGenerator) *LifecycleManager {
	if newID == nil {
		newID = uuid.NewString
	}
	return &LifecycleManager{newID: newID}
}

func checkOpen(s *domain.Suggestion, action domain.LifecycleAction) error {
	if s.RetiredAt != nil {
		return fmt.Errorf("%w: cannot %s retired suggestion %s", ErrInvalidTransition, action, s.ID)
	}
	if !s.Status.IsOpen() {
		return fmt.Errorf("%w: cannot %s %s suggestion %s", ErrInvalidTransition, action, s.Status, s.ID)
	}
	return nil
}

// Accept marks the suggestion accepted. A nil quantity accepts the recommended quantity.
func (m *LifecycleManager) Accept(s *domain.Suggestion, qty *float64, now time.Time) error {
	if err := checkOpen(s, domain.ActionAccept); err != nil {
		return err
	}
	accepted := s.RecommendedQty
	if qty != nil {
		if *qty <= 0 {
			return fmt.Errorf("%w: accepted quantity must be positive, got %g", ErrInvalidTransition, *qty)
		}
		accepted = *qty
	}

	s.Status = domain.StatusAccepted
	s.AcceptedQty = &accepted
	s.SnoozeUntil = nil
	s.StatusChangedAt = timePtr(now)
	s.UpdatedAt = now
	return nil
}

// Dismiss marks the suggestion dismissed with an optional reason
func (m *LifecycleManager) Dismiss(s *domain.Suggestion, reason string, now time.Time) error {
	if err := checkOpen(s, domain.ActionDismiss); err != nil {
		return err
	}

	s.Status = domain.StatusDismissed
	s.DismissReason = reason
	s.SnoozeUntil = nil
	s.StatusChangedAt = timePtr(now)
	s.UpdatedAt = now
	return nil
}

// Snooze hides the suggestion until the given time. Snoozing a snoozed suggestion moves the date.
func (m *LifecycleManager) Snooze(s *domain.Suggestion, until time.Time, now time.Time) error {
	if err := checkOpen(s, domain.ActionSnooze); err != nil {
		return err
	}
	if !until.After(now) {
		return fmt.Errorf("%w: snooze date %s is not in the future", ErrInvalidTransition, until.Format(time.RFC3339))
	}

	s.Status = domain.StatusSnoozed
	s.SnoozeUntil = timePtr(until)
	s.StatusChangedAt = timePtr(now)
	s.UpdatedAt = now
	return nil
}

// Apply validates cmd and runs it against the matching suggestion in place.
// It returns the updated suggestion.
func (m *LifecycleManager) Apply(suggestions []domain.Suggestion, cmd domain.LifecycleCommand, now time.Time) (domain.Suggestion, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Suggestion{}, err
	}

	idx := -1
	for i := range suggestions {
		if suggestions[i].ID == cmd.SuggestionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Suggestion{}, fmt.Errorf("%w: %s", ErrSuggestionNotFound, cmd.SuggestionID)
	}

	s := &suggestions[idx]
	var err error
	switch cmd.Action {
	case domain.ActionAccept:
		err = m.Accept(s, cmd.Quantity, now)
	case domain.ActionDismiss:
		err = m.Dismiss(s, cmd.Reason, now)
	case domain.ActionSnooze:
		err = m.Snooze(s, *cmd.Until, now)
	}
	if err != nil {
		return domain.Suggestion{}, err
	}
	return *s, nil
}

// Reconciliation is the suggestion set of a run after matching it against the previous one
type Reconciliation struct {
	Suggestions    []domain.Suggestion
	Retired        []domain.Suggestion
	Created        []string
	CarriedForward int
	Reactivated    int
}

// Reconcile matches warranted evaluations with the previous run's suggestions by
// product, destination and type. Open suggestions are refreshed in place, terminal
// ones are carried unchanged, unmatched previous ones are retired and unmatched
// evaluations become new active suggestions.
func (m *LifecycleManager) Reconcile(previous []domain.Suggestion, evaluations []Evaluation, now time.Time) Reconciliation {
	var rec Reconciliation

	byKey := make(map[domain.SuggestionKey]domain.Suggestion, len(previous))
	for _, p := range previous {
		if p.RetiredAt != nil {
			continue
		}
		key := p.Key()
		cur, ok := byKey[key]
		if !ok {
			byKey[key] = p
			continue
		}
		keep, drop := cur, p
		if preferPrevious(p, cur) {
			keep, drop = p, cur
		}
		byKey[key] = keep
		rec.Retired = append(rec.Retired, retire(drop, now))
	}

	for _, ev := range evaluations {
		if ev.Suggestion == nil {
			continue
		}
		fresh := *ev.Suggestion
		key := fresh.Key()

		prev, ok := byKey[key]
		if !ok {
			fresh.ID = m.newID()
			fresh.Status = domain.StatusActive
			fresh.CreatedAt = now
			fresh.UpdatedAt = now
			rec.Suggestions = append(rec.Suggestions, fresh)
			rec.Created = append(rec.Created, fresh.ID)
			continue
		}
		delete(byKey, key)
		rec.CarriedForward++

		if !prev.Status.IsOpen() {
			rec.Suggestions = append(rec.Suggestions, prev)
			continue
		}

		next, reactivated := carryForward(prev, fresh, now)
		if reactivated {
			rec.Reactivated++
		}
		rec.Suggestions = append(rec.Suggestions, next)
	}

	remaining := make([]domain.Suggestion, 0, len(byKey))
	for _, p := range byKey {
		remaining = append(remaining, p)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].ID < remaining[j].ID })
	for _, p := range remaining {
		rec.Retired = append(rec.Retired, retire(p, now))
	}

	return rec
}

// preferPrevious picks between two previous suggestions tracking the same condition
func preferPrevious(a, b domain.Suggestion) bool {
	if a.Status.IsOpen() != b.Status.IsOpen() {
		return a.Status.IsOpen()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func retire(s domain.Suggestion, now time.Time) domain.Suggestion {
	s.RetiredAt = timePtr(now)
	return s
}

// carryForward refreshes the figures of an open suggestion while keeping its
// identity and status. An expired snooze returns it to active.
func carryForward(prev, fresh domain.Suggestion, now time.Time) (domain.Suggestion, bool) {
	next := fresh
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = prev.UpdatedAt
	next.Status = prev.Status
	next.SnoozeUntil = prev.SnoozeUntil
	next.StatusChangedAt = prev.StatusChangedAt
	next.DismissReason = prev.DismissReason
	next.AcceptedQty = prev.AcceptedQty

	reactivated := false
	if prev.Status == domain.StatusSnoozed && (prev.SnoozeUntil == nil || !now.Before(*prev.SnoozeUntil)) {
		next.Status = domain.StatusActive
		next.SnoozeUntil = nil
		next.StatusChangedAt = timePtr(now)
		reactivated = true
	}

	if reactivated || !sameFigures(prev, next) {
		next.UpdatedAt = now
	}
	return next, reactivated
}

func sameFigures(a, b domain.Suggestion) bool {
	return a.SKU == b.SKU &&
		a.CurrentStock == b.CurrentStock &&
		a.InTransitQuantity == b.InTransitQuantity &&
		a.DailySalesRate == b.DailySalesRate &&
		sameFloat(a.DaysOfStockRemaining, b.DaysOfStockRemaining) &&
		sameTime(a.StockoutDate, b.StockoutDate) &&
		a.Urgency == b.Urgency &&
		a.SafetyStockThreshold == b.SafetyStockThreshold &&
		a.RecommendedQty == b.RecommendedQty &&
		a.EstimatedValue.Equal(b.EstimatedValue) &&
		sameSource(a.Source, b.Source) &&
		sameTime(a.EstimatedArrival, b.EstimatedArrival) &&
		sameReasoning(a.Reasoning, b.Reasoning)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameSource(a, b domain.Source) bool {
	switch x := a.(type) {
	case domain.Transfer:
		y, ok := b.(domain.Transfer)
		if !ok || x.SourceLocationID != y.SourceLocationID || x.AvailableQty != y.AvailableQty {
			return false
		}
		if x.Route == nil || y.Route == nil {
			return x.Route == y.Route
		}
		return *x.Route == *y.Route
	case domain.PurchaseOrder:
		y, ok := b.(domain.PurchaseOrder)
		return ok && x == y
	default:
		return b == nil
	}
}

func sameReasoning(a, b []domain.ReasoningItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Message != b[i].Message || a[i].Detail != b[i].Detail {
			return false
		}
		if !sameFloat(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

package domain

import "strings"

var urgencyRanks = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyWarning:  1,
	UrgencyPlanned:  2,
	UrgencyMonitor:  3,
}

var urgencyLabels = map[Urgency]string{
	UrgencyCritical: "Critical",
	UrgencyWarning:  "Warning",
	UrgencyPlanned:  "Planned",
	UrgencyMonitor:  "Monitor",
}

var statusCodes = map[string]SuggestionStatus{
	"active":    StatusActive,
	"snoozed":   StatusSnoozed,
	"dismissed": StatusDismissed,
	"accepted":  StatusAccepted,
}

// Rank orders urgency tiers, most urgent first
func (u Urgency) Rank() int {
	if rank, ok := urgencyRanks[u]; ok {
		return rank
	}

	return len(urgencyRanks)
}

// Label returns a human-readable label for an urgency tier.
func (u Urgency) Label() string {
	if label, ok := urgencyLabels[u]; ok {
		return label
	}

	return "Unknown"
}

// ParseUrgency returns the urgency for a given label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u := Urgency(strings.ToLower(strings.TrimSpace(label)))
	_, ok := urgencyRanks[u]

	return u, ok
}

// ParseStatus returns the suggestion status for a given label (case-insensitive).
func ParseStatus(label string) (SuggestionStatus, bool) {
	status, ok := statusCodes[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// ParseSuggestionType accepts "transfer", "purchase_order" and "purchase-order".
func ParseSuggestionType(label string) (SuggestionType, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), "-", "_") {
	case string(SuggestionTransfer):
		return SuggestionTransfer, true
	case string(SuggestionPurchaseOrder), "po":
		return SuggestionPurchaseOrder, true
	}

	return "", false
}

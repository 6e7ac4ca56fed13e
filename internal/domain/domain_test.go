package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSuggestionJSONKeepsSourceVariant(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		field  string
	}{
		{
			name:   "transfer",
			source: Transfer{SourceLocationID: "wh-1", AvailableQty: 80, Route: &RouteSelection{RouteID: "r-1", TransitDays: 2}},
			field:  `"transfer":{`,
		},
		{
			name:   "purchase order",
			source: PurchaseOrder{SupplierID: "sup-1", LeadTimeDays: 7, MinOrderQty: 20},
			field:  `"purchase_order":{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Suggestion{ID: "sg-1", ProductID: "p-1", Source: tt.source, Status: StatusActive}

			data, err := json.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !strings.Contains(string(data), tt.field) {
				t.Errorf("encoded suggestion %s lacks %s", data, tt.field)
			}

			var out Suggestion
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if out.Type() != tt.source.Type() {
				t.Errorf("type = %q, want %q", out.Type(), tt.source.Type())
			}
			if out.SourceLocationID() != in.SourceLocationID() || out.SupplierID() != in.SupplierID() {
				t.Errorf("source = %+v, want %+v", out.Source, in.Source)
			}
		})
	}
}

func TestSuggestionJSONRejectsMissingVariant(t *testing.T) {
	payloads := []string{
		`{"id":"sg-1","type":"transfer"}`,
		`{"id":"sg-1","type":"purchase_order"}`,
		`{"id":"sg-1","type":"airdrop"}`,
	}
	for _, p := range payloads {
		var s Suggestion
		if err := json.Unmarshal([]byte(p), &s); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", p)
		}
	}
}

func TestLifecycleCommandValidate(t *testing.T) {
	until := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	zero := 0.0

	tests := []struct {
		name    string
		cmd     LifecycleCommand
		wantErr bool
	}{
		{"accept", LifecycleCommand{Action: ActionAccept, SuggestionID: "sg-1"}, false},
		{"snooze", LifecycleCommand{Action: ActionSnooze, SuggestionID: "sg-1", Until: &until}, false},
		{"snooze without until", LifecycleCommand{Action: ActionSnooze, SuggestionID: "sg-1"}, true},
		{"missing id", LifecycleCommand{Action: ActionDismiss}, true},
		{"unknown action", LifecycleCommand{Action: "archive", SuggestionID: "sg-1"}, true},
		{"zero quantity", LifecycleCommand{Action: ActionAccept, SuggestionID: "sg-1", Quantity: &zero}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCommand) {
					t.Errorf("Validate() error = %v, want ErrInvalidCommand", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestSuggestionFilterMatches(t *testing.T) {
	s := Suggestion{
		ProductID:             "p-1",
		DestinationLocationID: "store-1",
		Urgency:               UrgencyWarning,
		Status:                StatusSnoozed,
		Source:                Transfer{SourceLocationID: "wh-1"},
	}

	tests := []struct {
		name   string
		filter SuggestionFilter
		want   bool
	}{
		{"empty", SuggestionFilter{}, true},
		{"status", SuggestionFilter{Statuses: []SuggestionStatus{StatusActive, StatusSnoozed}}, true},
		{"other status", SuggestionFilter{Statuses: []SuggestionStatus{StatusActive}}, false},
		{"urgency", SuggestionFilter{Urgencies: []Urgency{UrgencyCritical}}, false},
		{"location", SuggestionFilter{LocationID: "store-1"}, true},
		{"product", SuggestionFilter{ProductID: "p-2"}, false},
		{"type", SuggestionFilter{Type: SuggestionPurchaseOrder}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(s); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	bad := DefaultSettings()
	bad.Thresholds.WarningDays = bad.Thresholds.PlannedDays
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidSettings) || !errors.Is(err, ErrInvalidThresholds) {
		t.Errorf("Validate() error = %v, want ErrInvalidSettings wrapping ErrInvalidThresholds", err)
	}

	bad = DefaultSettings()
	bad.HistoryWindowDays = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Validate() error = %v, want ErrInvalidSettings", err)
	}
}

func TestParseLabels(t *testing.T) {
	if u, ok := ParseUrgency(" Critical "); !ok || u != UrgencyCritical {
		t.Errorf("ParseUrgency = %q, %v", u, ok)
	}
	if _, ok := ParseUrgency("urgent"); ok {
		t.Errorf("ParseUrgency accepted an unknown tier")
	}
	if st, ok := ParseStatus("DISMISSED"); !ok || st != StatusDismissed {
		t.Errorf("ParseStatus = %q, %v", st, ok)
	}
	if typ, ok := ParseSuggestionType("purchase-order"); !ok || typ != SuggestionPurchaseOrder {
		t.Errorf("ParseSuggestionType = %q, %v", typ, ok)
	}
	if UrgencyCritical.Rank() >= UrgencyMonitor.Rank() || Urgency("other").Rank() <= UrgencyMonitor.Rank() {
		t.Errorf("urgency ranks out of order")
	}
}

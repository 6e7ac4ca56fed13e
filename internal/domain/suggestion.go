package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SuggestionType is the kind of replenishment a suggestion recommends
type SuggestionType string

const (
	SuggestionTransfer      SuggestionType = "transfer"
	SuggestionPurchaseOrder SuggestionType = "purchase_order"
)

// Urgency is the replenishment urgency tier
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyPlanned  Urgency = "planned"
	UrgencyMonitor  Urgency = "monitor"
)

// SuggestionStatus is the lifecycle state of a suggestion
type SuggestionStatus string

const (
	StatusActive    SuggestionStatus = "active"
	StatusSnoozed   SuggestionStatus = "snoozed"
	StatusDismissed SuggestionStatus = "dismissed"
	StatusAccepted  SuggestionStatus = "accepted"
)

// IsOpen reports whether the status can still transition
func (s SuggestionStatus) IsOpen() bool {
	return s == StatusActive || s == StatusSnoozed
}

// ReasoningType classifies a reasoning step
type ReasoningType string

const (
	ReasoningInfo        ReasoningType = "info"
	ReasoningWarning     ReasoningType = "warning"
	ReasoningCalculation ReasoningType = "calculation"
)

// ReasoningItem explains one step of a suggestion's derivation
type ReasoningItem struct {
	Type    ReasoningType `json:"type"`
	Message string        `json:"message"`
	Value   *float64      `json:"value,omitempty"`
	Detail  string        `json:"detail,omitempty"`
}

// Info builds an info reasoning item
func Info(format string, args ...interface{}) ReasoningItem {
	return ReasoningItem{Type: ReasoningInfo, Message: fmt.Sprintf(format, args...)}
}

// Warning builds a warning reasoning item
func Warning(format string, args ...interface{}) ReasoningItem {
	return ReasoningItem{Type: ReasoningWarning, Message: fmt.Sprintf(format, args...)}
}

// Calculation builds a calculation reasoning item carrying its numeric result
func Calculation(value float64, format string, args ...interface{}) ReasoningItem {
	v := value
	return ReasoningItem{Type: ReasoningCalculation, Message: fmt.Sprintf(format, args...), Value: &v}
}

// Source is where replenishment stock comes from: a Transfer or a PurchaseOrder.
type Source interface {
	Type() SuggestionType
	isSource()
}

// RouteSelection is the shipping route chosen for a transfer
type RouteSelection struct {
	RouteID     string `json:"route_id"`
	Method      string `json:"method"`
	TransitDays int    `json:"transit_days"`
	IsDefault   bool   `json:"is_default"`
}

// Transfer moves stock from another location
type Transfer struct {
	SourceLocationID string          `json:"source_location_id"`
	AvailableQty     float64         `json:"available_qty"`
	Route            *RouteSelection `json:"route,omitempty"`
}

func (Transfer) Type() SuggestionType { return SuggestionTransfer }
func (Transfer) isSource()            {}

// PurchaseOrder buys stock from a supplier
type PurchaseOrder struct {
	SupplierID   string  `json:"supplier_id"`
	LeadTimeDays int     `json:"lead_time_days"`
	MinOrderQty  float64 `json:"min_order_qty"`
}

func (PurchaseOrder) Type() SuggestionType { return SuggestionPurchaseOrder }
func (PurchaseOrder) isSource()            {}

// Suggestion is a replenishment recommendation for one product at one destination
type Suggestion struct {
	ID                    string          `json:"id"`
	ProductID             string          `json:"product_id"`
	SKU                   string          `json:"sku"`
	DestinationLocationID string          `json:"destination_location_id"`
	CurrentStock          float64         `json:"current_stock"`
	InTransitQuantity     float64         `json:"in_transit_quantity"`
	DailySalesRate        float64         `json:"daily_sales_rate"`
	DaysOfStockRemaining  *float64        `json:"days_of_stock_remaining"`
	StockoutDate          *time.Time      `json:"stockout_date"`
	Urgency               Urgency         `json:"urgency"`
	SafetyStockThreshold  float64         `json:"safety_stock_threshold"`
	RecommendedQty        float64         `json:"recommended_qty"`
	EstimatedValue        decimal.Decimal `json:"estimated_value"`
	Source                Source          `json:"-"`
	EstimatedArrival      *time.Time      `json:"estimated_arrival"`
	Reasoning             []ReasoningItem `json:"reasoning"`

	Status          SuggestionStatus `json:"status"`
	SnoozeUntil     *time.Time       `json:"snooze_until"`
	StatusChangedAt *time.Time       `json:"status_changed_at,omitempty"`
	DismissReason   string           `json:"dismiss_reason,omitempty"`
	AcceptedQty     *float64         `json:"accepted_qty,omitempty"`
	RetiredAt       *time.Time       `json:"retired_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Type returns the suggestion type derived from its source
func (s Suggestion) Type() SuggestionType {
	if s.Source == nil {
		return ""
	}
	return s.Source.Type()
}

// Key identifies the replenishment condition a suggestion tracks
func (s Suggestion) Key() SuggestionKey {
	return SuggestionKey{ProductID: s.ProductID, LocationID: s.DestinationLocationID, Type: s.Type()}
}

// SourceLocationID returns the transfer source, or "" for purchase orders
func (s Suggestion) SourceLocationID() string {
	if t, ok := s.Source.(Transfer); ok {
		return t.SourceLocationID
	}
	return ""
}

// SupplierID returns the purchase order supplier, or "" for transfers
func (s Suggestion) SupplierID() string {
	if po, ok := s.Source.(PurchaseOrder); ok {
		return po.SupplierID
	}
	return ""
}

// SuggestionKey is the identity of a replenishment condition across runs
type SuggestionKey struct {
	ProductID  string
	LocationID string
	Type       SuggestionType
}

type suggestionAlias Suggestion

type suggestionJSON struct {
	suggestionAlias
	Type          SuggestionType `json:"type"`
	Transfer      *Transfer      `json:"transfer,omitempty"`
	PurchaseOrder *PurchaseOrder `json:"purchase_order,omitempty"`
}

// MarshalJSON writes the source variant next to a type discriminator
func (s Suggestion) MarshalJSON() ([]byte, error) {
	out := suggestionJSON{suggestionAlias: suggestionAlias(s), Type: s.Type()}
	switch src := s.Source.(type) {
	case Transfer:
		out.Transfer = &src
	case PurchaseOrder:
		out.PurchaseOrder = &src
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the source variant from its type discriminator
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var in suggestionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*s = Suggestion(in.suggestionAlias)
	switch in.Type {
	case SuggestionTransfer:
		if in.Transfer == nil {
			return fmt.Errorf("suggestion %s: transfer details missing", s.ID)
		}
		s.Source = *in.Transfer
	case SuggestionPurchaseOrder:
		if in.PurchaseOrder == nil {
			return fmt.Errorf("suggestion %s: purchase order details missing", s.ID)
		}
		s.Source = *in.PurchaseOrder
	case "":
		s.Source = nil
	default:
		return fmt.Errorf("suggestion %s: unknown type %q", s.ID, in.Type)
	}
	return nil
}

package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

var exportHeader = []string{
	"id", "type", "product_id", "sku", "destination_location_id", "source",
	"urgency", "status", "current_stock", "in_transit", "daily_sales_rate",
	"days_remaining", "stockout_date", "safety_stock_threshold", "recommended_qty",
	"estimated_value", "estimated_arrival", "snooze_until", "reasoning",
}

// ExportSuggestions writes suggestions to a CSV file at path
func ExportSuggestions(path string, suggestions []domain.Suggestion) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteSuggestionsCSV(file, suggestions); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// WriteSuggestionsCSV writes one row per suggestion in the given order
func WriteSuggestionsCSV(w io.Writer, suggestions []domain.Suggestion) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return err
	}

	for _, s := range suggestions {
		if err := writer.Write(suggestionRecord(s)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func suggestionRecord(s domain.Suggestion) []string {
	source := s.SourceLocationID()
	if source == "" {
		source = s.SupplierID()
	}

	messages := make([]string, len(s.Reasoning))
	for i, item := range s.Reasoning {
		messages[i] = item.Message
	}

	return []string{
		s.ID,
		string(s.Type()),
		s.ProductID,
		s.SKU,
		s.DestinationLocationID,
		source,
		string(s.Urgency),
		string(s.Status),
		formatFloat(s.CurrentStock),
		formatFloat(s.InTransitQuantity),
		formatFloat(s.DailySalesRate),
		formatOptFloat(s.DaysOfStockRemaining),
		formatDate(s.StockoutDate),
		formatFloat(s.SafetyStockThreshold),
		formatFloat(s.RecommendedQty),
		s.EstimatedValue.StringFixed(2),
		formatDate(s.EstimatedArrival),
		formatDate(s.SnoozeUntil),
		strings.Join(messages, " | "),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
)

func writeSnapshot(t *testing.T, today time.Time) string {
	t.Helper()
	dir := t.TempDir()

	var history strings.Builder
	history.WriteString("product_id,location_id,date,units_sold\n")
	for i := 30; i >= 1; i-- {
		fmt.Fprintf(&history, "p-1,store-1,%s,10\n", today.AddDate(0, 0, -i).Format("2006-01-02"))
	}

	files := map[string]string{
		"products.csv":      "id,sku,name,default_supplier_id,unit_cost\np-1,SKU-1,Widget,sup-1,2\n",
		"locations.csv":     "id,name,kind\nstore-1,Store One,store\n",
		"suppliers.csv":     "id,name,lead_time,min_order\nsup-1,Acme,7,20\n",
		"stock_levels.csv":  "product_id,location_id,on_hand\np-1,store-1,50\n",
		"sales_history.csv": history.String(),
		"forecasts.csv":     "product_id,location_id\np-1,store-1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestAdvisorCommands(t *testing.T) {
	t.Setenv("APP_DATA_DIR", t.TempDir())
	t.Setenv("APP_SNAPSHOT_DIR", "")

	snapshots := writeSnapshot(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	work := t.TempDir()
	state := filepath.Join(work, "state.json")
	out := filepath.Join(work, "suggestions.csv")

	err := newApp().Run([]string{"advisor", "run",
		"--snapshot-dir", snapshots, "--state", state, "--now", "2025-03-01", "--out", out})
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("export not written: %v", err)
	}

	store := csvsource.NewFileStore(state)
	current, err := store.CurrentSuggestions(context.Background())
	if err != nil || len(current) != 1 {
		t.Fatalf("stored suggestions = %d, %v; want 1", len(current), err)
	}
	id := current[0].ID
	if current[0].Type() != domain.SuggestionPurchaseOrder || current[0].Status != domain.StatusActive {
		t.Errorf("suggestion = %s %s", current[0].Type(), current[0].Status)
	}

	if err := newApp().Run([]string{"advisor", "list", "--state", state, "--urgency", "critical"}); err != nil {
		t.Errorf("list error = %v", err)
	}

	if err := newApp().Run([]string{"advisor", "accept", "--state", state, "--qty", "40", id}); err != nil {
		t.Fatalf("accept error = %v", err)
	}
	got, err := store.GetSuggestion(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSuggestion() error = %v", err)
	}
	if got.Status != domain.StatusAccepted || got.AcceptedQty == nil || *got.AcceptedQty != 40 {
		t.Errorf("accepted suggestion = %s qty %v", got.Status, got.AcceptedQty)
	}
}

func TestAdvisorCommandErrors(t *testing.T) {
	t.Setenv("APP_DATA_DIR", t.TempDir())
	t.Setenv("APP_SNAPSHOT_DIR", "")
	state := filepath.Join(t.TempDir(), "state.json")

	tests := []struct {
		name string
		args []string
	}{
		{"run without snapshot", []string{"advisor", "run", "--state", state}},
		{"run with bad date", []string{"advisor", "run", "--snapshot-dir", t.TempDir(), "--state", state, "--now", "March"}},
		{"list unknown urgency", []string{"advisor", "list", "--state", state, "--urgency", "urgent"}},
		{"accept without id", []string{"advisor", "accept", "--state", state}},
		{"dismiss unknown id", []string{"advisor", "dismiss", "--state", state, "sg-missing"}},
		{"snooze without until", []string{"advisor", "snooze", "--state", state, "sg-1"}},
		{"snooze bad until", []string{"advisor", "snooze", "--state", state, "--until", "soon", "sg-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newApp().Run(tt.args); err == nil {
				t.Errorf("Run(%v) succeeded, want error", tt.args[1:])
			}
		})
	}
}

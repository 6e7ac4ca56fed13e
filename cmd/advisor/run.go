package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC3339", value)
	}
	return t, nil
}

// newService builds an advisor over the state file. source may be nil for
// commands that never refresh.
func newService(c *cli.Context, source repository.SnapshotSource, opts ...service.Option) *service.AdvisorService {
	cfg := config.Load()
	engine := intelligence.NewEngine(
		intelligence.WithWorkers(cfg.Intelligence.Workers),
		intelligence.WithLogger(logger.Component("engine")),
	)
	store := csvsource.NewFileStore(c.String("state"))
	return service.NewAdvisorService(source, store, engine, cfg.Intelligence.Settings(), opts...)
}

func runCalculation(c *cli.Context) error {
	cfg := config.Load()

	var source repository.SnapshotSource
	switch {
	case c.String("bucket-prefix") != "":
		objects, err := storage.NewFromConfig(cfg.Storage)
		if err != nil {
			return err
		}
		source = storage.NewBundleSource(objects, c.String("bucket-prefix"), cfg.App.DataDir)
	case c.String("snapshot-dir") != "":
		source = csvsource.NewDirSource(c.String("snapshot-dir"))
	default:
		return errors.New("one of --snapshot-dir or --bucket-prefix is required")
	}

	var opts []service.Option
	if value := c.String("now"); value != "" {
		now, err := parseDate(value)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithClock(func() time.Time { return now }))
	}

	result, err := newService(c, source, opts...).Refresh(c.Context, nil)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("suggestions", len(result.Suggestions)).
		Int("created", result.Stats.Created).
		Int("carried_forward", result.Stats.CarriedForward).
		Int("retired", result.Stats.Retired).
		Int("critical", result.Summary.ByUrgency.Critical).
		Int("warning", result.Summary.ByUrgency.Warning).
		Str("total_value", result.Summary.TotalRecommendedValue.StringFixed(2)).
		Msg("calculation finished")

	if out := c.String("out"); out != "" {
		if err := csvsource.ExportSuggestions(out, result.Suggestions); err != nil {
			return err
		}
		logger.Log.Info().Str("path", out).Msg("suggestions exported")
	}
	return nil
}

func listSuggestions(c *cli.Context) error {
	filter := domain.SuggestionFilter{LocationID: c.String("location")}
	for _, label := range c.StringSlice("urgency") {
		u, ok := domain.ParseUrgency(label)
		if !ok {
			return fmt.Errorf("unknown urgency %q", label)
		}
		filter.Urgencies = append(filter.Urgencies, u)
	}

	suggestions, err := newService(c, nil).ListSuggestions(c.Context, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tURGENCY\tSTATUS\tTYPE\tSKU\tDESTINATION\tSOURCE\tQTY\tDAYS LEFT")
	for _, s := range suggestions {
		source := s.SourceLocationID()
		if source == "" {
			source = s.SupplierID()
		}
		days := "-"
		if s.DaysOfStockRemaining != nil {
			days = strconv.FormatFloat(*s.DaysOfStockRemaining, 'f', 1, 64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%g\t%s\n",
			s.ID, s.Urgency, s.Status, s.Type(), s.SKU, s.DestinationLocationID, source, s.RecommendedQty, days)
	}
	return w.Flush()
}

func suggestionID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s needs exactly one suggestion id", c.Command.Name)
	}
	return c.Args().First(), nil
}

func acceptSuggestion(c *cli.Context) error {
	id, err := suggestionID(c)
	if err != nil {
		return err
	}

	var qty *float64
	if c.IsSet("qty") {
		v := c.Float64("qty")
		qty = &v
	}

	s, err := newService(c, nil).Accept(c.Context, id, qty)
	if err != nil {
		return err
	}
	logger.Log.Info().Str("id", s.ID).Float64("qty", *s.AcceptedQty).Msg("suggestion accepted")
	return nil
}

func dismissSuggestion(c *cli.Context) error {
	id, err := suggestionID(c)
	if err != nil {
		return err
	}

	s, err := newService(c, nil).Dismiss(c.Context, id, c.String("reason"))
	if err != nil {
		return err
	}
	logger.Log.Info().Str("id", s.ID).Msg("suggestion dismissed")
	return nil
}

func snoozeSuggestion(c *cli.Context) error {
	id, err := suggestionID(c)
	if err != nil {
		return err
	}

	until, err := parseDate(c.String("until"))
	if err != nil {
		return err
	}

	s, err := newService(c, nil).Snooze(c.Context, id, until)
	if err != nil {
		return err
	}
	logger.Log.Info().Str("id", s.ID).Time("until", until).Msg("suggestion snoozed")
	return nil
}

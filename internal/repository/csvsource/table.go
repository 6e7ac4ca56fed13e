package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// table is a CSV file read into memory with a normalized header
type table struct {
	name    string
	header  []string
	records [][]string
}

func readTable(path, name string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseTable(file, name)
}

func parseTable(r io.Reader, name string) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}

	t := &table{name: name, header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if isBlank(record) {
			continue
		}
		t.records = append(t.records, record)
	}
	return t, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// colIndex returns the position of the first header matching any of names, or -1
func (t *table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// require resolves mandatory columns, failing on the first missing one
func (t *table) require(names ...string) (int, error) {
	idx := t.colIndex(names...)
	if idx < 0 {
		return -1, fmt.Errorf("%s: missing column %q", t.name, names[0])
	}
	return idx, nil
}

// row reads typed cells from one record and keeps the first parse error
type row struct {
	table  string
	line   int
	record []string
	err    error
}

func (t *table) rows() []*row {
	out := make([]*row, len(t.records))
	for i, record := range t.records {
		// header is line 1
		out[i] = &row{table: t.name, line: i + 2, record: record}
	}
	return out
}

func (r *row) get(idx int) string {
	if idx < 0 || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func (r *row) fail(idx int, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s line %d column %d: invalid value %q: %w", r.table, r.line, idx+1, value, err)
	}
}

func (r *row) float(idx int) float64 {
	v := strings.ReplaceAll(r.get(idx), ",", "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(idx, v, err)
	}
	return f
}

func (r *row) optFloat(idx int) *float64 {
	if r.get(idx) == "" {
		return nil
	}
	f := r.float(idx)
	return &f
}

func (r *row) int(idx int) int {
	return int(r.float(idx))
}

func (r *row) decimal(idx int) decimal.Decimal {
	v := strings.ReplaceAll(r.get(idx), ",", "")
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.fail(idx, v, err)
	}
	return d
}

// bool treats a missing cell as def
func (r *row) bool(idx int, def bool) bool {
	v := strings.ToLower(r.get(idx))
	switch v {
	case "":
		return def
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(idx, v, err)
	}
	return b
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

func (r *row) date(idx int) time.Time {
	v := r.get(idx)
	if v == "" {
		r.fail(idx, v, errors.New("date required"))
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	r.fail(idx, v, errors.New("expected YYYY-MM-DD"))
	return time.Time{}
}

// floats parses a ';' separated list such as seasonal multipliers
func (r *row) floats(idx int) []float64 {
	v := r.get(idx)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ";")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			r.fail(idx, p, err)
			return nil
		}
		out = append(out, f)
	}
	return out
}

// Package ingest reads the canonical match table. Source provenance,
// provider reconciliation and name mapping happen upstream; this
// boundary only checks column presence and types.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"teamticker/internal/pricing"
)

// Source supplies canonical match records to the pipeline.
type Source interface {
	Records(ctx context.Context) ([]pricing.MatchRecord, error)
}

// Required header columns of the canonical table.
var requiredColumns = []string{
	"season", "period", "home_team", "away_team",
	"home_goals", "away_goals", "home_strength", "away_strength", "result",
}

// Optional columns. Empty or absent xG leaves the record's xG nil, which
// downstream feature derivation treats as the degraded path.
var optionalColumns = []string{
	"home_xg", "away_xg", "home_yellow", "away_yellow", "home_red", "away_red",
}

// CSVReader loads match records from a canonical CSV file.
type CSVReader struct {
	path   string
	logger zerolog.Logger
}

// NewCSVReader constructs a reader for the given file path.
func NewCSVReader(path string, logger zerolog.Logger) *CSVReader {
	return &CSVReader{path: path, logger: logger.With().Str("component", "ingest").Logger()}
}

// Records parses the whole table. Any malformed row fails the load with
// its row number; partially parsed tables are never returned.
func (r *CSVReader) Records(ctx context.Context) ([]pricing.MatchRecord, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open match table: %w", err)
	}
	defer file.Close()

	records, err := parse(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	r.logger.Info().Int("records", len(records)).Str("path", r.path).Msg("match table loaded")
	return records, nil
}

func parse(ctx context.Context, src io.Reader) ([]pricing.MatchRecord, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var records []pricing.MatchRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rec, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(cols map[string]int, row []string) (pricing.MatchRecord, error) {
	p := rowParser{cols: cols, row: row}

	rec := pricing.MatchRecord{
		Season:       p.intField("season"),
		Period:       p.intField("period"),
		HomeTeam:     p.stringField("home_team"),
		AwayTeam:     p.stringField("away_team"),
		HomeGoals:    p.intField("home_goals"),
		AwayGoals:    p.intField("away_goals"),
		HomeStrength: p.floatField("home_strength"),
		AwayStrength: p.floatField("away_strength"),
		HomeXG:       p.optionalFloat("home_xg"),
		AwayXG:       p.optionalFloat("away_xg"),
		HomeYellow:   p.optionalInt("home_yellow"),
		AwayYellow:   p.optionalInt("away_yellow"),
		HomeRed:      p.optionalInt("home_red"),
		AwayRed:      p.optionalInt("away_red"),
		Result:       pricing.Outcome(p.stringField("result")),
	}
	if p.err != nil {
		return pricing.MatchRecord{}, p.err
	}

	if rec.HomeTeam == "" || rec.AwayTeam == "" {
		return pricing.MatchRecord{}, fmt.Errorf("empty team name")
	}
	if rec.HomeTeam == rec.AwayTeam {
		return pricing.MatchRecord{}, fmt.Errorf("team %q plays itself", rec.HomeTeam)
	}
	if rec.Period < 1 {
		return pricing.MatchRecord{}, fmt.Errorf("period %d must be positive", rec.Period)
	}
	if rec.HomeGoals < 0 || rec.AwayGoals < 0 {
		return pricing.MatchRecord{}, fmt.Errorf("negative goal count")
	}
	if !rec.Result.Valid() {
		return pricing.MatchRecord{}, fmt.Errorf("result %q must be H, D or A", rec.Result)
	}
	return rec, nil
}

// rowParser accumulates the first field-level error so each accessor
// can stay a plain expression.
type rowParser struct {
	cols map[string]int
	row  []string
	err  error
}

func (p *rowParser) raw(name string) (string, bool) {
	idx, ok := p.cols[name]
	if !ok || idx >= len(p.row) {
		return "", false
	}
	return strings.TrimSpace(p.row[idx]), true
}

func (p *rowParser) stringField(name string) string {
	v, _ := p.raw(name)
	return v
}

func (p *rowParser) intField(name string) int {
	if p.err != nil {
		return 0
	}
	v, ok := p.raw(name)
	if !ok || v == "" {
		p.err = fmt.Errorf("column %q is empty", name)
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("column %q: %w", name, err)
		return 0
	}
	return n
}

func (p *rowParser) floatField(name string) float64 {
	if p.err != nil {
		return 0
	}
	v, ok := p.raw(name)
	if !ok || v == "" {
		p.err = fmt.Errorf("column %q is empty", name)
		return 0
	}
	return p.parseFloat(name, v)
}

func (p *rowParser) optionalFloat(name string) *float64 {
	if p.err != nil {
		return nil
	}
	v, ok := p.raw(name)
	if !ok || v == "" {
		return nil
	}
	f := p.parseFloat(name, v)
	if p.err != nil {
		return nil
	}
	return &f
}

func (p *rowParser) optionalInt(name string) int {
	if p.err != nil {
		return 0
	}
	v, ok := p.raw(name)
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.err = fmt.Errorf("column %q: %w", name, err)
		return 0
	}
	return n
}

func (p *rowParser) parseFloat(name, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.err = fmt.Errorf("column %q: %w", name, err)
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.err = fmt.Errorf("column %q: non-finite value %q", name, v)
		return 0
	}
	return f
}

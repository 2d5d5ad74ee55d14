package pricing

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Engine turns per-period feature vectors into a synthetic price series
// per team within a single season. A team starts pricing at the baseline
// on its first update; every update compounds the clamped weighted sum of
// its components onto the previous price. Updates must arrive in strictly
// increasing period order per team.
//
// The engine itself is not safe for concurrent use; ApplyAll runs its own
// bounded worker pool over disjoint team series.
type Engine struct {
	season  int
	cfg     Config
	weights []weightTerm
	teams   map[string]*teamSeries
}

// weightTerm is a component weight in fixed name order, so the float
// summation in rate() is identical run to run regardless of map layout.
type weightTerm struct {
	name   string
	weight float64
}

type teamSeries struct {
	active     bool
	lastPeriod int
	price      float64
	returns    []float64
	history    []PriceState
}

// NewEngine builds an engine for one season. cfg is assumed validated.
func NewEngine(season int, cfg Config) *Engine {
	names := make([]string, 0, len(cfg.FeatureWeights))
	for name := range cfg.FeatureWeights {
		names = append(names, name)
	}
	slices.Sort(names)
	terms := make([]weightTerm, 0, len(names))
	for _, name := range names {
		if w := cfg.FeatureWeights[name]; w != 0 {
			terms = append(terms, weightTerm{name: name, weight: w})
		}
	}
	return &Engine{
		season:  season,
		cfg:     cfg,
		weights: terms,
		teams:   make(map[string]*teamSeries),
	}
}

// Season reports which season this engine prices.
func (e *Engine) Season() int { return e.season }

// Apply folds one feature vector into the team's series and returns the
// resulting snapshot. A mismatched season, or a period at or before the
// team's last applied one, is rejected with ErrOutOfOrderUpdate and the
// series is left exactly as it was.
func (e *Engine) Apply(f TeamPeriodFeature) (PriceState, error) {
	return e.applyOne(e.series(f.Team), f)
}

// ApplyAll partitions the features by team, preserving input order within
// each team, and applies every series on a bounded worker pool. The first
// error cancels outstanding work. Features are expected in period order
// per team; crossing updates surface as ErrOutOfOrderUpdate.
func (e *Engine) ApplyAll(ctx context.Context, feats []TeamPeriodFeature) error {
	byTeam := make(map[string][]TeamPeriodFeature)
	var order []string
	for _, f := range feats {
		if _, ok := byTeam[f.Team]; !ok {
			order = append(order, f.Team)
		}
		byTeam[f.Team] = append(byTeam[f.Team], f)
	}

	// Seed every series up front; the workers below only ever read the map.
	series := make(map[string]*teamSeries, len(order))
	for _, team := range order {
		series[team] = e.series(team)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, team := range order {
		g.Go(func() error {
			ts := series[team]
			for _, f := range byTeam[team] {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := e.applyOne(ts, f); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Teams lists every priced team in lexical order.
func (e *Engine) Teams() []string {
	teams := make([]string, 0, len(e.teams))
	for team := range e.teams {
		teams = append(teams, team)
	}
	slices.Sort(teams)
	return teams
}

// History returns the team's snapshots in period order.
func (e *Engine) History(team string) ([]PriceState, error) {
	ts, ok := e.teams[team]
	if !ok {
		return nil, fmt.Errorf("team %q season %d: %w", team, e.season, ErrUnknownTeam)
	}
	return slices.Clone(ts.history), nil
}

// Latest returns the team's most recent snapshot.
func (e *Engine) Latest(team string) (PriceState, error) {
	ts, ok := e.teams[team]
	if !ok || len(ts.history) == 0 {
		return PriceState{}, fmt.Errorf("team %q season %d: %w", team, e.season, ErrUnknownTeam)
	}
	return ts.history[len(ts.history)-1], nil
}

func (e *Engine) series(team string) *teamSeries {
	ts, ok := e.teams[team]
	if !ok {
		ts = &teamSeries{}
		e.teams[team] = ts
	}
	return ts
}

func (e *Engine) applyOne(ts *teamSeries, f TeamPeriodFeature) (PriceState, error) {
	if f.Season != e.season {
		return PriceState{}, fmt.Errorf("team %q period %d: season %d offered to season %d engine: %w",
			f.Team, f.Period, f.Season, e.season, ErrOutOfOrderUpdate)
	}
	if ts.active && f.Period <= ts.lastPeriod {
		return PriceState{}, fmt.Errorf("team %q period %d arrived at or before period %d: %w",
			f.Team, f.Period, ts.lastPeriod, ErrOutOfOrderUpdate)
	}

	rate := e.rate(f)
	old := ts.price
	if !ts.active {
		old = e.cfg.BaselinePrice
		ts.active = true
	}
	price := old * (1 + rate)

	ts.price = price
	ts.lastPeriod = f.Period
	ts.returns = append(ts.returns, rate)

	st := PriceState{
		Team:      f.Team,
		Season:    f.Season,
		Period:    f.Period,
		Price:     price,
		Return:    rate,
		CumReturn: price/e.cfg.BaselinePrice - 1,
		Degraded:  f.Degraded,
	}
	if n := e.cfg.VolatilityWindow; len(ts.returns) >= n {
		v := stat.StdDev(ts.returns[len(ts.returns)-n:], nil)
		st.Volatility = &v
	}
	ts.history = append(ts.history, st)
	return st, nil
}

// rate is the clamped weighted sum of the recognised components. Terms
// are folded in fixed name order.
func (e *Engine) rate(f TeamPeriodFeature) float64 {
	raw := 0.0
	for _, t := range e.weights {
		v, _ := f.Component(t.name)
		raw += t.weight * v
	}
	switch {
	case raw < e.cfg.RateClamp.Min:
		return e.cfg.RateClamp.Min
	case raw > e.cfg.RateClamp.Max:
		return e.cfg.RateClamp.Max
	default:
		return raw
	}
}

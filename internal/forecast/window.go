package forecast

import (
	"fmt"
	"iter"
	"slices"

	"teamticker/internal/pricing"
)

// Point pairs one period's feature vector with the price snapshot the
// engine produced from it. Series fed to the Builder must be one team,
// one season, ascending periods.
type Point struct {
	Feature pricing.TeamPeriodFeature
	State   pricing.PriceState
}

// LagFeature is one historical period inside a training window.
type LagFeature struct {
	Period        int
	Result        float64
	ScoreDiff     float64
	XGDiff        float64
	StrengthDelta float64
	Return        float64
}

// TrainingWindow is a fixed-length run of lagged periods paired with the
// realized return at TargetPeriod. Lags are ordered oldest first and
// every lag period is strictly before TargetPeriod. Immutable once
// built.
type TrainingWindow struct {
	Team         string
	Season       int
	TargetPeriod int
	Lags         []LagFeature
	Label        float64
}

// Features flattens the window into the model input vector: per lag,
// oldest first, the result, score differential, xG differential,
// strength delta and realized return of that period.
func (w TrainingWindow) Features() []float64 {
	out := make([]float64, 0, componentsPerLag*len(w.Lags))
	for _, lag := range w.Lags {
		out = append(out, lag.Result, lag.ScoreDiff, lag.XGDiff, lag.StrengthDelta, lag.Return)
	}
	return out
}

const componentsPerLag = 5

// featureNames labels the full feature vector. Lag 1 is the period
// closest to the target.
func featureNames(lookback int) []string {
	names := make([]string, 0, componentsPerLag*lookback)
	for i := 0; i < lookback; i++ {
		lag := lookback - i
		names = append(names,
			fmt.Sprintf("result_lag%d", lag),
			fmt.Sprintf("score_diff_lag%d", lag),
			fmt.Sprintf("xg_diff_lag%d", lag),
			fmt.Sprintf("strength_delta_lag%d", lag),
			fmt.Sprintf("return_lag%d", lag),
		)
	}
	return names
}

// returnFeatures reduces the window to its lagged returns only, for the
// autoregressive model.
func returnFeatures(w TrainingWindow) []float64 {
	out := make([]float64, len(w.Lags))
	for i, lag := range w.Lags {
		out[i] = lag.Return
	}
	return out
}

func returnNames(lookback int) []string {
	names := make([]string, lookback)
	for i := 0; i < lookback; i++ {
		names[i] = fmt.Sprintf("return_lag%d", lookback-i)
	}
	return names
}

// Builder assembles training windows from priced team series. It holds
// immutable copies; iteration never mutates builder state, so sequences
// from Windows are restartable.
type Builder struct {
	lookback int
	teams    map[string][]Point
}

// NewBuilder creates a builder producing windows with the given
// lookback length.
func NewBuilder(lookback int) *Builder {
	return &Builder{lookback: lookback, teams: make(map[string][]Point)}
}

// Lookback reports the window length this builder produces.
func (b *Builder) Lookback() int { return b.lookback }

// AddSeries registers one team's priced season. Points must belong to
// that team and carry strictly increasing periods; a team may only be
// registered once per builder.
func (b *Builder) AddSeries(team string, points []Point) error {
	if _, ok := b.teams[team]; ok {
		return fmt.Errorf("series for team %q already registered", team)
	}
	for i, p := range points {
		if p.State.Team != team || p.Feature.Team != team {
			return fmt.Errorf("series for team %q contains point for team %q", team, p.State.Team)
		}
		if p.Feature.Period != p.State.Period {
			return fmt.Errorf("team %q: feature period %d paired with state period %d",
				team, p.Feature.Period, p.State.Period)
		}
		if i > 0 && p.State.Period <= points[i-1].State.Period {
			return fmt.Errorf("team %q: period %d not after period %d",
				team, p.State.Period, points[i-1].State.Period)
		}
	}
	b.teams[team] = slices.Clone(points)
	return nil
}

// Window builds the training window whose label is the team's realized
// return at targetPeriod. Fails with ErrInsufficientHistory unless the
// target period was priced and at least Lookback periods precede it.
func (b *Builder) Window(team string, targetPeriod int) (TrainingWindow, error) {
	series, ok := b.teams[team]
	if !ok {
		return TrainingWindow{}, fmt.Errorf("team %q period %d: no priced series: %w",
			team, targetPeriod, ErrInsufficientHistory)
	}
	idx := slices.IndexFunc(series, func(p Point) bool { return p.State.Period == targetPeriod })
	if idx < 0 {
		return TrainingWindow{}, fmt.Errorf("team %q period %d: period never priced: %w",
			team, targetPeriod, ErrInsufficientHistory)
	}
	if idx < b.lookback {
		return TrainingWindow{}, fmt.Errorf("team %q period %d: %d prior periods, need %d: %w",
			team, targetPeriod, idx, b.lookback, ErrInsufficientHistory)
	}
	w := b.window(team, series, idx)
	return w, nil
}

// Next builds an unlabeled window for the team's upcoming period, one
// past the last priced one, from its most recent Lookback periods. The
// Label is zero and carries no meaning; callers forecast with it.
func (b *Builder) Next(team string) (TrainingWindow, error) {
	series, ok := b.teams[team]
	if !ok {
		return TrainingWindow{}, fmt.Errorf("team %q: no priced series: %w", team, ErrInsufficientHistory)
	}
	if len(series) < b.lookback {
		return TrainingWindow{}, fmt.Errorf("team %q: %d priced periods, need %d: %w",
			team, len(series), b.lookback, ErrInsufficientHistory)
	}
	last := series[len(series)-1]
	w := TrainingWindow{
		Team:         team,
		Season:       last.State.Season,
		TargetPeriod: last.State.Period + 1,
		Lags:         lags(series[len(series)-b.lookback:]),
	}
	return w, nil
}

// Windows iterates every eligible (team, target period) pair, teams in
// lexical order, periods ascending within a team. The sequence is lazy
// and restartable; stopping early has no side effects.
func (b *Builder) Windows() iter.Seq[TrainingWindow] {
	teams := make([]string, 0, len(b.teams))
	for team := range b.teams {
		teams = append(teams, team)
	}
	slices.Sort(teams)

	return func(yield func(TrainingWindow) bool) {
		for _, team := range teams {
			series := b.teams[team]
			for idx := b.lookback; idx < len(series); idx++ {
				if !yield(b.window(team, series, idx)) {
					return
				}
			}
		}
	}
}

func (b *Builder) window(team string, series []Point, idx int) TrainingWindow {
	target := series[idx]
	return TrainingWindow{
		Team:         team,
		Season:       target.State.Season,
		TargetPeriod: target.State.Period,
		Lags:         lags(series[idx-b.lookback : idx]),
		Label:        target.State.Return,
	}
}

func lags(points []Point) []LagFeature {
	out := make([]LagFeature, len(points))
	for i, p := range points {
		out[i] = LagFeature{
			Period:        p.State.Period,
			Result:        p.Feature.Result,
			ScoreDiff:     p.Feature.ScoreDiff,
			XGDiff:        p.Feature.XGDiff,
			StrengthDelta: p.Feature.StrengthDelta,
			Return:        p.State.Return,
		}
	}
	return out
}

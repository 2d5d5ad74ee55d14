package pricing

// Outcome is the full-time result of a match from the home side's view.
type Outcome string

const (
	HomeWin Outcome = "H"
	Draw    Outcome = "D"
	AwayWin Outcome = "A"
)

// Valid reports whether the outcome is one of H, D, A.
func (o Outcome) Valid() bool {
	return o == HomeWin || o == Draw || o == AwayWin
}

// MatchRecord is an immutable match-level fact from the canonical input
// table. xG values are nil when the provider had no data for the fixture;
// strength ratings are pre-match scalars supplied by the ingestion
// collaborator.
type MatchRecord struct {
	Season       int
	Period       int
	HomeTeam     string
	AwayTeam     string
	HomeGoals    int
	AwayGoals    int
	HomeXG       *float64
	AwayXG       *float64
	HomeStrength float64
	AwayStrength float64
	HomeYellow   int
	AwayYellow   int
	HomeRed      int
	AwayRed      int
	Result       Outcome
}

// Component names recognised by the price update rule. Weights in
// Config.FeatureWeights are keyed by these.
const (
	ComponentResult        = "result"
	ComponentScoreDiff     = "score_diff"
	ComponentXGDiff        = "xg_diff"
	ComponentStrengthDelta = "strength_delta"
	ComponentCleanSheet    = "clean_sheet"
	ComponentCardPoints    = "card_points"
)

// ComponentNames lists all recognised component names in stable order.
func ComponentNames() []string {
	return []string{
		ComponentResult,
		ComponentScoreDiff,
		ComponentXGDiff,
		ComponentStrengthDelta,
		ComponentCleanSheet,
		ComponentCardPoints,
	}
}

// TeamPeriodFeature is the bounded per-team per-period feature vector
// derived from one MatchRecord. Every component is finite and clipped to
// [-1, 1]. Degraded marks rows where xG was missing and the goals
// differential stood in for XGDiff.
type TeamPeriodFeature struct {
	Team   string
	Season int
	Period int

	Result        float64 // +1 win, 0 draw, -1 loss
	ScoreDiff     float64
	XGDiff        float64
	StrengthDelta float64
	CleanSheet    float64
	CardPoints    float64

	Degraded bool
}

// Component returns the named component value.
func (f TeamPeriodFeature) Component(name string) (float64, bool) {
	switch name {
	case ComponentResult:
		return f.Result, true
	case ComponentScoreDiff:
		return f.ScoreDiff, true
	case ComponentXGDiff:
		return f.XGDiff, true
	case ComponentStrengthDelta:
		return f.StrengthDelta, true
	case ComponentCleanSheet:
		return f.CleanSheet, true
	case ComponentCardPoints:
		return f.CardPoints, true
	default:
		return 0, false
	}
}

// PriceState is a snapshot of one team's valuation after a period update.
// Volatility is nil until Config.VolatilityWindow returns have been
// observed. Instances are value copies; the engine owns the live state.
type PriceState struct {
	Team       string
	Season     int
	Period     int
	Price      float64
	Return     float64
	CumReturn  float64
	Volatility *float64
	Degraded   bool
}

package pricing

import "fmt"

// Normalize derives the bounded feature vector for one team's side of a
// match. The perspective team must be the record's home or away team.
// When either xG value is missing the goals differential stands in for
// XGDiff and the row is marked Degraded; the computation never fails on
// missing xG.
func Normalize(rec MatchRecord, team string, cfg Config) (TeamPeriodFeature, error) {
	var (
		goalsFor, goalsAgainst int
		xgFor, xgAgainst       *float64
		ownStrength, oppStr    float64
		yellow, red            int
		won, lost              bool
	)
	switch team {
	case rec.HomeTeam:
		goalsFor, goalsAgainst = rec.HomeGoals, rec.AwayGoals
		xgFor, xgAgainst = rec.HomeXG, rec.AwayXG
		ownStrength, oppStr = rec.HomeStrength, rec.AwayStrength
		yellow, red = rec.HomeYellow, rec.HomeRed
		won, lost = rec.Result == HomeWin, rec.Result == AwayWin
	case rec.AwayTeam:
		goalsFor, goalsAgainst = rec.AwayGoals, rec.HomeGoals
		xgFor, xgAgainst = rec.AwayXG, rec.HomeXG
		ownStrength, oppStr = rec.AwayStrength, rec.HomeStrength
		yellow, red = rec.AwayYellow, rec.AwayRed
		won, lost = rec.Result == AwayWin, rec.Result == HomeWin
	default:
		return TeamPeriodFeature{}, fmt.Errorf("normalize: team %q not in %s vs %s (season %d period %d)",
			team, rec.HomeTeam, rec.AwayTeam, rec.Season, rec.Period)
	}

	f := TeamPeriodFeature{
		Team:   team,
		Season: rec.Season,
		Period: rec.Period,
	}
	switch {
	case won:
		f.Result = 1
	case lost:
		f.Result = -1
	}
	f.ScoreDiff = clip(float64(goalsFor-goalsAgainst) / cfg.GoalDivisor)
	if xgFor != nil && xgAgainst != nil {
		f.XGDiff = clip((*xgFor - *xgAgainst) / cfg.XGDivisor)
	} else {
		f.XGDiff = f.ScoreDiff
		f.Degraded = true
	}
	// Opponent rating minus own, so wins over stronger opposition carry a
	// bigger positive signal than wins over weaker opposition.
	f.StrengthDelta = clip((oppStr - ownStrength) / cfg.StrengthDivisor)
	if goalsAgainst == 0 {
		f.CleanSheet = 1
	}
	f.CardPoints = clip(float64(yellow+2*red) / cardPointsDivisor)
	return f, nil
}

// Expand derives both perspectives of a match in one call, home first.
func Expand(rec MatchRecord, cfg Config) (home, away TeamPeriodFeature, err error) {
	home, err = Normalize(rec, rec.HomeTeam, cfg)
	if err != nil {
		return TeamPeriodFeature{}, TeamPeriodFeature{}, err
	}
	away, err = Normalize(rec, rec.AwayTeam, cfg)
	if err != nil {
		return TeamPeriodFeature{}, TeamPeriodFeature{}, err
	}
	return home, away, nil
}

// cardPointsDivisor scales booking points (yellow=1, red=2) into [-1, 1].
// Three reds is the practical ceiling for one side in a match.
const cardPointsDivisor = 6.0

func clip(v float64) float64 {
	switch {
	case v != v: // NaN guards against degenerate provider values
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}

package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
)

// resultOnlyConfig prices purely off the match result with weight w, so
// per-period returns are exactly +w, 0 or -w.
func resultOnlyConfig(w float64) Config {
	cfg := DefaultConfig()
	cfg.FeatureWeights = map[string]float64{ComponentResult: w}
	cfg.WeightTotal = w
	return cfg
}

func resultFeature(team string, season, period int, result float64) TeamPeriodFeature {
	return TeamPeriodFeature{Team: team, Season: season, Period: period, Result: result}
}

func TestEngineFirstUpdateFromBaseline(t *testing.T) {
	e := NewEngine(2024, resultOnlyConfig(0.1))

	st, err := e.Apply(resultFeature("Leeds", 2024, 1, 1))
	if err != nil {
		t.Fatalf("首次更新不应报错: %v", err)
	}
	if st.Return != 0.1 {
		t.Fatalf("首期回报应等于 0.1, 实际 %v", st.Return)
	}
	if math.Abs(st.Price-110) > 1e-9 {
		t.Fatalf("首期价格应约为 110, 实际 %v", st.Price)
	}
	if st.Volatility != nil {
		t.Fatal("单期后波动率应为 nil")
	}

	e2 := NewEngine(2024, resultOnlyConfig(0.1))
	st, err = e2.Apply(resultFeature("Leeds", 2024, 1, 0))
	if err != nil {
		t.Fatalf("首次更新不应报错: %v", err)
	}
	if st.Price != 100 || st.CumReturn != 0 {
		t.Fatalf("平局首期应停留在基准价, 实际 price=%v cum=%v", st.Price, st.CumReturn)
	}
}

func TestEnginePricesStayPositive(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(2024, cfg)

	// Worst case: every component pinned at -1 for fifty periods.
	f := TeamPeriodFeature{
		Team: "Derby", Season: 2024,
		Result: -1, ScoreDiff: -1, XGDiff: -1, StrengthDelta: -1, CardPoints: 1,
	}
	for p := 1; p <= 50; p++ {
		f.Period = p
		st, err := e.Apply(f)
		if err != nil {
			t.Fatalf("第 %d 期更新失败: %v", p, err)
		}
		if st.Price <= 0 {
			t.Fatalf("第 %d 期价格跌破零: %v", p, st.Price)
		}
		if st.Return < cfg.RateClamp.Min || st.Return > cfg.RateClamp.Max {
			t.Fatalf("第 %d 期回报越过钳制区间: %v", p, st.Return)
		}
	}
}

func TestEngineClampBoundsRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeatureWeights = map[string]float64{ComponentResult: 0.5, ComponentXGDiff: 0.3, ComponentStrengthDelta: 0.2}
	cfg.WeightTotal = 1.0
	cfg.RateClamp = RateClamp{Min: -0.10, Max: 0.10}
	e := NewEngine(2024, cfg)

	// Raw weighted sum 0.5*1 + 0.3*0 + 0.2*0 = 0.5, clamped to 0.10.
	st, err := e.Apply(resultFeature("Everton", 2024, 1, 1))
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if st.Return != 0.10 {
		t.Fatalf("回报应被钳制到 0.10, 实际 %v", st.Return)
	}
	if math.Abs(st.Price-110) > 1e-9 {
		t.Fatalf("价格应反映 10%% 涨幅, 实际 %v", st.Price)
	}

	st, err = e.Apply(resultFeature("Everton", 2024, 2, -1))
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if st.Return != -0.10 {
		t.Fatalf("回报应被钳制到 -0.10, 实际 %v", st.Return)
	}
}

func TestEngineOutOfOrderRejected(t *testing.T) {
	e := NewEngine(2024, resultOnlyConfig(0.1))
	if _, err := e.Apply(resultFeature("Fulham", 2024, 1, 1)); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	before, err := e.Apply(resultFeature("Fulham", 2024, 2, -1))
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	for _, period := range []int{2, 1} {
		_, err := e.Apply(resultFeature("Fulham", 2024, period, 1))
		if !errors.Is(err, ErrOutOfOrderUpdate) {
			t.Fatalf("期数 %d 应返回 ErrOutOfOrderUpdate, 实际 %v", period, err)
		}
	}

	after, err := e.Latest("Fulham")
	if err != nil {
		t.Fatalf("Latest 失败: %v", err)
	}
	if after != before {
		t.Fatalf("被拒绝的更新不应改动状态: %+v vs %+v", after, before)
	}
	hist, err := e.History("Fulham")
	if err != nil {
		t.Fatalf("History 失败: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("历史长度应保持 2, 实际 %d", len(hist))
	}
}

func TestEngineSeasonMismatchRejected(t *testing.T) {
	e := NewEngine(2024, resultOnlyConfig(0.1))
	_, err := e.Apply(resultFeature("Fulham", 2023, 1, 1))
	if !errors.Is(err, ErrOutOfOrderUpdate) {
		t.Fatalf("跨赛季更新应返回 ErrOutOfOrderUpdate, 实际 %v", err)
	}
	if teams := e.Teams(); len(teams) != 0 {
		t.Fatalf("被拒绝的更新不应登记球队: %v", teams)
	}
}

func TestEngineVolatilityWindow(t *testing.T) {
	cfg := resultOnlyConfig(0.1)
	cfg.VolatilityWindow = 3
	e := NewEngine(2024, cfg)

	results := []float64{1, -1, 0, 1}
	var states []PriceState
	for i, r := range results {
		st, err := e.Apply(resultFeature("Brentford", 2024, i+1, r))
		if err != nil {
			t.Fatalf("第 %d 期更新失败: %v", i+1, err)
		}
		states = append(states, st)
	}

	if states[0].Volatility != nil || states[1].Volatility != nil {
		t.Fatal("前 2 期波动率应为 nil")
	}
	if states[2].Volatility == nil || states[3].Volatility == nil {
		t.Fatal("自第 3 期起波动率应有值")
	}
	// Sample stddev of {0.1, -0.1, 0} is 0.1; of {-0.1, 0, 0.1} likewise.
	if got := *states[2].Volatility; math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("第 3 期波动率期望 0.1, 实际 %v", got)
	}
	if got := *states[3].Volatility; math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("第 4 期波动率期望 0.1, 实际 %v", got)
	}
}

func TestEngineDeterministicReplay(t *testing.T) {
	feats := mirrorSeasonFeatures(t, 2024)

	run := func() []PriceState {
		e := NewEngine(2024, DefaultConfig())
		var out []PriceState
		for _, f := range feats {
			st, err := e.Apply(f)
			if err != nil {
				t.Fatalf("更新失败: %v", err)
			}
			out = append(out, st)
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if !statesEqual(first[i], second[i]) {
			t.Fatalf("第 %d 条快照重放后不一致: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestEngineApplyAllMatchesSequential(t *testing.T) {
	feats := mirrorSeasonFeatures(t, 2024)

	seq := NewEngine(2024, DefaultConfig())
	for _, f := range feats {
		if _, err := seq.Apply(f); err != nil {
			t.Fatalf("顺序更新失败: %v", err)
		}
	}

	cfg := DefaultConfig()
	cfg.Workers = 4
	par := NewEngine(2024, cfg)
	if err := par.ApplyAll(context.Background(), feats); err != nil {
		t.Fatalf("ApplyAll 失败: %v", err)
	}

	for _, team := range seq.Teams() {
		want, err := seq.History(team)
		if err != nil {
			t.Fatalf("History 失败: %v", err)
		}
		got, err := par.History(team)
		if err != nil {
			t.Fatalf("History 失败: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("%s 历史长度不一致: %d vs %d", team, len(got), len(want))
		}
		for i := range want {
			if !statesEqual(got[i], want[i]) {
				t.Fatalf("%s 第 %d 条快照不一致: %+v vs %+v", team, i, got[i], want[i])
			}
		}
	}
}

func TestEngineApplyAllSurfacesOutOfOrder(t *testing.T) {
	e := NewEngine(2024, DefaultConfig())
	feats := []TeamPeriodFeature{
		resultFeature("A", 2024, 2, 1),
		resultFeature("A", 2024, 1, -1),
	}
	err := e.ApplyAll(context.Background(), feats)
	if !errors.Is(err, ErrOutOfOrderUpdate) {
		t.Fatalf("乱序输入应返回 ErrOutOfOrderUpdate, 实际 %v", err)
	}
}

func TestEngineMirroredSeason(t *testing.T) {
	feats := mirrorSeasonFeatures(t, 2024)
	e := NewEngine(2024, DefaultConfig())
	if err := e.ApplyAll(context.Background(), feats); err != nil {
		t.Fatalf("ApplyAll 失败: %v", err)
	}

	alpha, err := e.History("Alpha")
	if err != nil {
		t.Fatalf("History 失败: %v", err)
	}
	beta, err := e.History("Beta")
	if err != nil {
		t.Fatalf("History 失败: %v", err)
	}

	if alpha[4].Price <= 100 {
		t.Fatalf("五连胜后 Alpha 应高于基准价, 实际 %v", alpha[4].Price)
	}
	if beta[4].Price >= 100 {
		t.Fatalf("五连败后 Beta 应低于基准价, 实际 %v", beta[4].Price)
	}
	for i := range alpha {
		if alpha[i].Return != -beta[i].Return {
			t.Fatalf("第 %d 期回报应互为相反数: %v vs %v", i+1, alpha[i].Return, beta[i].Return)
		}
	}
	// Mirrored returns share the same dispersion.
	va, vb := alpha[len(alpha)-1].Volatility, beta[len(beta)-1].Volatility
	if va == nil || vb == nil {
		t.Fatal("赛季末波动率应有值")
	}
	if *va != *vb {
		t.Fatalf("镜像球队的波动率应一致: %v vs %v", *va, *vb)
	}
}

func TestEngineUnknownTeam(t *testing.T) {
	e := NewEngine(2024, DefaultConfig())
	if _, err := e.History("Ghost"); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("未知球队应返回 ErrUnknownTeam, 实际 %v", err)
	}
	if _, err := e.Latest("Ghost"); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("未知球队应返回 ErrUnknownTeam, 实际 %v", err)
	}
}

// mirrorSeasonFeatures builds ten periods of Alpha vs Beta where Alpha
// wins the first five and loses the last five, with symmetric xG and
// strengths, so the two feature streams are exact negations.
func mirrorSeasonFeatures(t *testing.T, season int) []TeamPeriodFeature {
	t.Helper()
	cfg := DefaultConfig()
	var feats []TeamPeriodFeature
	for p := 1; p <= 10; p++ {
		winnerXG, loserXG := 2.2, 0.7
		rec := MatchRecord{
			Season: season, Period: p,
			HomeTeam: "Alpha", AwayTeam: "Beta",
			HomeStrength: 1.3, AwayStrength: 1.1,
			Result: HomeWin,
			HomeGoals: 2, AwayGoals: 0,
			HomeXG: &winnerXG, AwayXG: &loserXG,
		}
		if p%2 == 0 {
			rec.HomeTeam, rec.AwayTeam = "Beta", "Alpha"
			rec.HomeStrength, rec.AwayStrength = 1.1, 1.3
			rec.Result = AwayWin
			rec.HomeGoals, rec.AwayGoals = 0, 2
			rec.HomeXG, rec.AwayXG = &loserXG, &winnerXG
		}
		if p > 5 {
			// Beta takes over: flip the result and the score.
			if rec.Result == HomeWin {
				rec.Result = AwayWin
			} else {
				rec.Result = HomeWin
			}
			rec.HomeGoals, rec.AwayGoals = rec.AwayGoals, rec.HomeGoals
			rec.HomeXG, rec.AwayXG = rec.AwayXG, rec.HomeXG
		}
		home, away, err := Expand(rec, cfg)
		if err != nil {
			t.Fatalf("Expand 失败: %v", err)
		}
		feats = append(feats, home, away)
	}
	return feats
}

func statesEqual(a, b PriceState) bool {
	if a.Team != b.Team || a.Season != b.Season || a.Period != b.Period {
		return false
	}
	if a.Price != b.Price || a.Return != b.Return || a.CumReturn != b.CumReturn || a.Degraded != b.Degraded {
		return false
	}
	if (a.Volatility == nil) != (b.Volatility == nil) {
		return false
	}
	if a.Volatility != nil && *a.Volatility != *b.Volatility {
		return false
	}
	return true
}

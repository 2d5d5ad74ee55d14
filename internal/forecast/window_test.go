package forecast

import (
	"errors"
	"testing"

	"teamticker/internal/pricing"
)

// seasonPoints builds a priced series for one team with per-period
// returns r[i] at periods 1..len(r).
func seasonPoints(team string, season int, returns []float64) []Point {
	points := make([]Point, len(returns))
	price := 100.0
	for i, r := range returns {
		price *= 1 + r
		points[i] = Point{
			Feature: pricing.TeamPeriodFeature{
				Team: team, Season: season, Period: i + 1,
				Result: sign(r), ScoreDiff: r, XGDiff: r / 2, StrengthDelta: -r / 4,
			},
			State: pricing.PriceState{
				Team: team, Season: season, Period: i + 1,
				Price: price, Return: r,
			},
		}
	}
	return points
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func newTestBuilder(t *testing.T, lookback int, returns []float64) *Builder {
	t.Helper()
	b := NewBuilder(lookback)
	if err := b.AddSeries("Arsenal", seasonPoints("Arsenal", 2024, returns)); err != nil {
		t.Fatalf("AddSeries 失败: %v", err)
	}
	return b
}

func TestBuilderWindowNoLookahead(t *testing.T) {
	b := newTestBuilder(t, 3, []float64{0.05, -0.02, 0.01, 0.03, -0.04, 0.02})

	for target := 4; target <= 6; target++ {
		w, err := b.Window("Arsenal", target)
		if err != nil {
			t.Fatalf("期数 %d 构窗失败: %v", target, err)
		}
		if len(w.Lags) != 3 {
			t.Fatalf("滞后期数应为 3, 实际 %d", len(w.Lags))
		}
		for _, lag := range w.Lags {
			if lag.Period >= target {
				t.Fatalf("窗口混入了目标期或未来期: lag=%d target=%d", lag.Period, target)
			}
		}
		for i := 1; i < len(w.Lags); i++ {
			if w.Lags[i].Period <= w.Lags[i-1].Period {
				t.Fatalf("滞后期应严格递增: %+v", w.Lags)
			}
		}
	}
}

func TestBuilderWindowLabelIsTargetReturn(t *testing.T) {
	returns := []float64{0.05, -0.02, 0.01, 0.03}
	b := newTestBuilder(t, 2, returns)

	w, err := b.Window("Arsenal", 4)
	if err != nil {
		t.Fatalf("构窗失败: %v", err)
	}
	if w.Label != returns[3] {
		t.Fatalf("标签应为目标期回报 %v, 实际 %v", returns[3], w.Label)
	}
	if w.Lags[len(w.Lags)-1].Return != returns[2] {
		t.Fatalf("最近一期滞后回报应为 %v, 实际 %v", returns[2], w.Lags[len(w.Lags)-1].Return)
	}
}

func TestBuilderInsufficientHistory(t *testing.T) {
	b := newTestBuilder(t, 4, []float64{0.01, 0.02, 0.03})

	cases := []struct {
		team   string
		target int
	}{
		{"Arsenal", 3},  // only two prior periods
		{"Arsenal", 99}, // never priced
		{"Ghost", 3},    // team unknown
	}
	for _, tc := range cases {
		if _, err := b.Window(tc.team, tc.target); !errors.Is(err, ErrInsufficientHistory) {
			t.Fatalf("%s 期 %d 应返回 ErrInsufficientHistory, 实际 %v", tc.team, tc.target, err)
		}
	}

	if _, err := b.Next("Arsenal"); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("历史不足时 Next 应失败, 实际 %v", err)
	}
}

func TestBuilderNext(t *testing.T) {
	b := newTestBuilder(t, 3, []float64{0.05, -0.02, 0.01, 0.03})

	w, err := b.Next("Arsenal")
	if err != nil {
		t.Fatalf("Next 失败: %v", err)
	}
	if w.TargetPeriod != 5 {
		t.Fatalf("下一期应为 5, 实际 %d", w.TargetPeriod)
	}
	if got := w.Lags[len(w.Lags)-1].Period; got != 4 {
		t.Fatalf("最近滞后期应为 4, 实际 %d", got)
	}
	if w.Label != 0 {
		t.Fatalf("未实现标签应为零值, 实际 %v", w.Label)
	}
}

func TestBuilderWindowsRestartable(t *testing.T) {
	b := NewBuilder(2)
	if err := b.AddSeries("Bravo", seasonPoints("Bravo", 2024, []float64{0.01, 0.02, 0.03, 0.04})); err != nil {
		t.Fatalf("AddSeries 失败: %v", err)
	}
	if err := b.AddSeries("Aston", seasonPoints("Aston", 2024, []float64{-0.01, -0.02, -0.03})); err != nil {
		t.Fatalf("AddSeries 失败: %v", err)
	}

	collect := func() []TrainingWindow {
		var out []TrainingWindow
		for w := range b.Windows() {
			out = append(out, w)
		}
		return out
	}

	first := collect()
	// Bravo: targets 3,4; the other team: target 3.
	if len(first) != 3 {
		t.Fatalf("应产生 3 个窗口, 实际 %d", len(first))
	}

	// Early stop, then a full restart must replay the same sequence.
	count := 0
	for range b.Windows() {
		count++
		if count == 1 {
			break
		}
	}
	second := collect()
	if len(second) != len(first) {
		t.Fatalf("重启后窗口数不一致: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Team != second[i].Team || first[i].TargetPeriod != second[i].TargetPeriod {
			t.Fatalf("重启后第 %d 个窗口不一致: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBuilderRejectsBadSeries(t *testing.T) {
	b := NewBuilder(2)
	good := seasonPoints("Chelsea", 2024, []float64{0.01, 0.02})
	if err := b.AddSeries("Chelsea", good); err != nil {
		t.Fatalf("AddSeries 失败: %v", err)
	}
	if err := b.AddSeries("Chelsea", good); err == nil {
		t.Fatal("重复注册应报错")
	}

	shuffled := seasonPoints("Derby", 2024, []float64{0.01, 0.02, 0.03})
	shuffled[1], shuffled[2] = shuffled[2], shuffled[1]
	if err := NewBuilder(2).AddSeries("Derby", shuffled); err == nil {
		t.Fatal("乱序序列应被拒绝")
	}

	if err := NewBuilder(2).AddSeries("Everton", good); err == nil {
		t.Fatal("球队不匹配的序列应被拒绝")
	}
}

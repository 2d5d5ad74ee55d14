package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"teamticker/internal/pricing"
	"teamticker/internal/storage"
)

func samplePriceRows(n int) []storage.PriceRow {
	runID := uuid.MustParse("5bfa0fab-3bf6-44f8-9f27-1b84e2570926")
	rows := make([]storage.PriceRow, n)
	for i := range rows {
		rows[i] = storage.PriceRow{
			RunID:     runID,
			Team:      "Alpha",
			Season:    2024,
			Period:    i + 1,
			Price:     decimal.NewFromFloat(100 + float64(i)),
			Return:    decimal.NewFromFloat(0.01),
			CumReturn: decimal.NewFromFloat(0.01 * float64(i+1)),
			CreatedAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return rows
}

func TestDownsampleRowsKeepsEndpoints(t *testing.T) {
	rows := samplePriceRows(100)

	out := downsampleRows(rows, 10)
	if len(out) != 10 {
		t.Fatalf("降采样后应剩 10 条, 实际 %d", len(out))
	}
	if out[0].Period != rows[0].Period || out[len(out)-1].Period != rows[len(rows)-1].Period {
		t.Fatalf("降采样应保留首尾点: %d..%d", out[0].Period, out[len(out)-1].Period)
	}
	for i := 1; i < len(out); i++ {
		if out[i].Period <= out[i-1].Period {
			t.Fatalf("降采样后期数应保持递增: %+v", out)
		}
	}

	// At or below the cap the series passes through untouched.
	small := samplePriceRows(5)
	if got := downsampleRows(small, 10); len(got) != 5 {
		t.Fatalf("低于上限时不应降采样, 实际 %d", len(got))
	}
	if got := downsampleRows(small, 0); len(got) != 5 {
		t.Fatalf("上限为零时不应降采样, 实际 %d", len(got))
	}
}

func TestWritePriceStatesCSVShape(t *testing.T) {
	vol := 0.021
	states := []pricing.PriceState{
		{Team: "Alpha", Season: 2024, Period: 1, Price: 115, Return: 0.15, CumReturn: 0.15},
		{Team: "Alpha", Season: 2024, Period: 2, Price: 132.25, Return: 0.15, CumReturn: 0.3225, Volatility: &vol, Degraded: true},
	}

	path := filepath.Join(t.TempDir(), "out", "prices.csv")
	if err := writePriceStatesCSV(path, states); err != nil {
		t.Fatalf("写 CSV 失败: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("读回 CSV 失败: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("解析 CSV 失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("应有表头加 2 行数据, 实际 %d 行", len(records))
	}

	header := []string{"season", "team", "period", "price", "return", "cum_return", "volatility", "degraded"}
	for i, want := range header {
		if records[0][i] != want {
			t.Fatalf("表头第 %d 列期望 %q, 实际 %q", i, want, records[0][i])
		}
	}
	if records[1][6] != "" {
		t.Fatalf("窗口未满时波动率列应为空, 实际 %q", records[1][6])
	}
	if records[2][6] != "0.021" || records[2][7] != "true" {
		t.Fatalf("第 2 行波动率/降级标记不正确: %v", records[2])
	}
}

package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/assist-by/krbacktest/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// WriteTradesCSV는 체결 기록을 CSV로 저장합니다
func WriteTradesCSV(trades []domain.Trade, path string) error {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []string{
			t.Time.Format(timeLayout), t.Symbol, string(t.Action), string(t.Reason), strconv.Itoa(t.Stage),
			formatF(t.Price), strconv.FormatInt(t.Quantity, 10),
			formatF(t.Gross), formatF(t.Fee), formatF(t.Tax), formatF(t.Amount),
			formatF(t.Profit), formatF(t.ProfitPct),
		})
	}
	return writeCSV(path, []string{
		"time", "symbol", "action", "reason", "stage", "price", "qty",
		"gross", "fee", "tax", "amount", "profit", "profit_pct",
	}, rows)
}

// WriteEquityCSV는 자산 곡선을 CSV로 저장합니다
func WriteEquityCSV(curve []domain.EquityPoint, path string) error {
	rows := make([][]string, 0, len(curve))
	for _, p := range curve {
		rows = append(rows, []string{p.Time.Format(timeLayout), formatF(p.Equity), formatF(p.Cash)})
	}
	return writeCSV(path, []string{"time", "equity", "cash"}, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("CSV 파일 생성 실패: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("CSV 쓰기 실패: %w", err)
	}
	return f.Close()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

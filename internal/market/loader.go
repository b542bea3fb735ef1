// Package market은 OHLCV CSV 로드와 결과 CSV 내보내기를 담당합니다.
// 모든 I/O는 시뮬레이션 루프 밖에서 수행합니다
package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/assist-by/krbacktest/internal/domain"
)

// dateLayouts는 지원하는 날짜 형식입니다
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "20060102"}

// headerAliases는 헤더 이름을 표준 컬럼으로 매핑합니다
var headerAliases = map[string]string{
	"date": "date", "datetime": "date", "time": "date", "timestamp": "date", "일자": "date", "날짜": "date",
	"open": "open", "시가": "open",
	"high": "high", "고가": "high",
	"low": "low", "저가": "low",
	"close": "close", "종가": "close",
	"volume": "volume", "거래량": "volume",
}

var defaultOrder = []string{"date", "open", "high", "low", "close", "volume"}

// ParseDate는 지원하는 형식 중 하나로 날짜를 해석합니다
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("알 수 없는 날짜 형식: %q", s)
}

// ReadCSV는 date,open,high,low,close,volume 형식의 CSV를 읽습니다.
// 헤더는 선택이며 있으면 이름으로 컬럼을 찾습니다. 잘못된 행은 건너뛰고 경고로 반환합니다
func ReadCSV(r io.Reader, name string) (domain.BarList, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: CSV 읽기 실패: %w", name, err)
	}
	if len(records) == 0 {
		return nil, []string{fmt.Sprintf("%s: 데이터가 없습니다", name)}, nil
	}

	index := make(map[string]int, len(defaultOrder))
	start := 0
	if _, err := ParseDate(records[0][0]); err != nil {
		for i, h := range records[0] {
			key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			if col, ok := headerAliases[key]; ok {
				index[col] = i
			}
		}
		start = 1
	} else {
		for i, col := range defaultOrder {
			index[col] = i
		}
	}
	for _, col := range []string{"date", "close"} {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%s: 필수 컬럼 %q가 없습니다", name, col)
		}
	}

	var (
		bars     domain.BarList
		warnings []string
	)
	for n, rec := range records[start:] {
		line := n + start + 1
		bar, err := parseRecord(rec, index)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s:%d: %v", name, line, err))
			continue
		}
		bars = append(bars, bar)
	}
	return bars, warnings, nil
}

func parseRecord(rec []string, index map[string]int) (domain.Bar, error) {
	field := func(col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return "", false
		}
		v := strings.TrimSpace(rec[i])
		return v, v != ""
	}

	raw, _ := field("date")
	t, err := ParseDate(raw)
	if err != nil {
		return domain.Bar{}, err
	}
	bar := domain.Bar{Time: t}

	closeRaw, ok := field("close")
	if !ok {
		return domain.Bar{}, errors.New("종가가 비어 있습니다")
	}
	if bar.Close, err = parseNumber(closeRaw); err != nil {
		return domain.Bar{}, fmt.Errorf("종가: %w", err)
	}

	// 시가/고가/저가가 없으면 종가로 채웁니다
	for _, c := range []struct {
		col string
		dst *float64
	}{{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}} {
		*c.dst = bar.Close
		if v, ok := field(c.col); ok {
			if *c.dst, err = parseNumber(v); err != nil {
				return domain.Bar{}, fmt.Errorf("%s: %w", c.col, err)
			}
		}
	}
	if v, ok := field("volume"); ok {
		if bar.Volume, err = parseNumber(v); err != nil {
			return domain.Bar{}, fmt.Errorf("volume: %w", err)
		}
	}
	return bar, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// LoadCSV는 파일에서 봉 데이터를 읽습니다
func LoadCSV(path string) (domain.BarList, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("데이터 파일 열기 실패: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path))
}

// LoadDir은 dir/<symbol>.csv 파일들을 읽습니다. symbols가 비어 있으면 디렉터리의 모든 CSV를 읽습니다
func LoadDir(dir string, symbols []string) (map[string]domain.BarList, []string, error) {
	if len(symbols) == 0 {
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, nil, fmt.Errorf("데이터 디렉터리 검색 실패: %w", err)
		}
		for _, m := range matches {
			symbols = append(symbols, strings.TrimSuffix(filepath.Base(m), filepath.Ext(m)))
		}
		sort.Strings(symbols)
	}
	if len(symbols) == 0 {
		return nil, nil, fmt.Errorf("%s: CSV 파일이 없습니다", dir)
	}

	data := make(map[string]domain.BarList, len(symbols))
	var warnings []string
	for _, symbol := range symbols {
		bars, w, err := LoadCSV(filepath.Join(dir, symbol+".csv"))
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
		data[symbol] = bars
	}
	return data, warnings, nil
}

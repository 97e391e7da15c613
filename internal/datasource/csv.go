// Package datasource loads bar and tick-trade sequences from CSV files for
// the CLI. Persistence formats are otherwise owned by external collaborators;
// the core exchanges only in-memory structures.
package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// LoadBarsCSV reads an ordered bar sequence from a CSV file with a
// time,open,high,low,close,volume header. Timestamps are RFC3339 or unix
// seconds.
func LoadBarsCSV(path string) ([]types.Bar, error) {
	rows, err := readRows(path, 6)
	if err != nil {
		return nil, fmt.Errorf("LoadBarsCSV: %w", err)
	}

	bars := make([]types.Bar, 0, len(rows))

	for i, row := range rows {
		t, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("LoadBarsCSV: row %d: %w", i+1, err)
		}

		values, err := parseFloats(row[1:])
		if err != nil {
			return nil, fmt.Errorf("LoadBarsCSV: row %d: %w", i+1, err)
		}

		bars = append(bars, types.Bar{
			Time:   t,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	return bars, nil
}

// LoadTickTradesCSV reads an ordered tick-trade sequence from a CSV file with
// a time,price,quantity,is_buyer_maker header.
func LoadTickTradesCSV(path string) ([]types.TickTrade, error) {
	rows, err := readRows(path, 4)
	if err != nil {
		return nil, fmt.Errorf("LoadTickTradesCSV: %w", err)
	}

	trades := make([]types.TickTrade, 0, len(rows))

	for i, row := range rows {
		t, err := parseTime(row[0])
		if err != nil {
			return nil, fmt.Errorf("LoadTickTradesCSV: row %d: %w", i+1, err)
		}

		values, err := parseFloats(row[1:3])
		if err != nil {
			return nil, fmt.Errorf("LoadTickTradesCSV: row %d: %w", i+1, err)
		}

		isBuyerMaker, err := strconv.ParseBool(row[3])
		if err != nil {
			return nil, fmt.Errorf("LoadTickTradesCSV: row %d: invalid is_buyer_maker: %w", i+1, err)
		}

		trades = append(trades, types.TickTrade{
			Time:         t,
			Price:        values[0],
			Quantity:     values[1],
			IsBuyerMaker: isBuyerMaker,
		})
	}

	return trades, nil
}

// readRows reads all data rows, skipping the header, and checks the column
// count.
func readRows(path string, columns int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = columns

	var rows [][]string

	first := true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if first {
			first = false

			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
	}

	return time.Unix(unix, 0).UTC(), nil
}

func parseFloats(values []string) ([]float64, error) {
	parsed := make([]float64, len(values))

	for i, value := range values {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value)
		}

		parsed[i] = f
	}

	return parsed, nil
}

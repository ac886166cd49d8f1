package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock/internal/replenishment"
)

var scenarioColumns = []string{"location", "sku", "stock", "demand_daily", "qty_to_add"}

// parseScenarioCSV reads scenario rows. The header row is required; column
// order is free and qty_to_add may be omitted. Empty numeric cells read as zero.
func parseScenarioCSV(r io.Reader) ([]replenishment.ScenarioRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("scenario file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range scenarioColumns[:4] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []replenishment.ScenarioRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		number := func(col string) (float64, error) {
			v := cell(col)
			if v == "" {
				return 0, nil
			}
			f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: invalid %s %q", line, col, v)
			}
			return f, nil
		}

		row := replenishment.ScenarioRow{Location: cell("location"), SKU: cell("sku")}
		if row.StockCurrent, err = number("stock"); err != nil {
			return nil, err
		}
		if row.DemandDaily, err = number("demand_daily"); err != nil {
			return nil, err
		}
		if row.QuantityToAdd, err = number("qty_to_add"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

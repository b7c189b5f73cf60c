package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column headers of the subscriptions sheet. Only Name and Amount are required.
const (
	colName        = "Name"
	colAmount      = "Amount"
	colCurrency    = "Currency"
	colStartsOn    = "Starts On"
	colRepeat      = "Repeat"
	colInterval    = "Interval"
	colDescription = "Description"
	colColor       = "Color"
)

// ParseSubscriptionsXLSX reads subscriptions from the first sheet of an Excel file.
// The header row may appear below a title; rows without a name or amount are skipped.
// Amounts accept a decimal comma ("9,99").
func ParseSubscriptionsXLSX(path string) (Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, fmt.Errorf("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, fmt.Errorf("reading sheet: %w", err)
	}

	// Find header row and column indices
	cols := map[string]int{}
	dataStartRow := -1
	for i, row := range rows {
		found := map[string]int{}
		for j, cell := range row {
			found[strings.TrimSpace(cell)] = j
		}
		_, hasName := found[colName]
		_, hasAmount := found[colAmount]
		if hasName && hasAmount {
			cols = found
			dataStartRow = i + 1
			break
		}
	}
	if dataStartRow < 0 {
		return Dataset{}, fmt.Errorf("could not find required columns (%s, %s)", colName, colAmount)
	}

	cell := func(row []string, name string) string {
		j, ok := cols[name]
		if !ok || j >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[j])
	}

	var ds Dataset
	for i := dataStartRow; i < len(rows); i++ {
		row := rows[i]

		name := cell(row, colName)
		amountStr := cell(row, colAmount)
		if name == "" || amountStr == "" {
			continue
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(amountStr, ",", "."))
		if err != nil {
			return Dataset{}, fmt.Errorf("row %d: parsing amount %q: %w", i+1, amountStr, err)
		}

		interval := 1
		if s := cell(row, colInterval); s != "" {
			interval, err = strconv.Atoi(s)
			if err != nil {
				return Dataset{}, fmt.Errorf("row %d: parsing interval %q: %w", i+1, s, err)
			}
		}

		repeat := cell(row, colRepeat)
		if repeat == "" {
			repeat = "month"
		}

		ds.Subscriptions = append(ds.Subscriptions, Subscription{
			Name:           name,
			Amount:         amount,
			Currency:       strings.ToUpper(cell(row, colCurrency)),
			StartsOn:       cell(row, colStartsOn),
			RepeatMode:     repeat,
			RepeatInterval: interval,
			Description:    cell(row, colDescription),
			Color:          cell(row, colColor),
		})
	}

	return ds, nil
}

// Package pivot reshapes a raw long-format indicator export (one row per
// area, indicator, category and period) into a wide table with one row per
// area and one set of columns per indicator and category, keeping only the
// latest period of each series.
package pivot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/fingertips/pkg/log"
	"github.com/rubiojr/fingertips/pkg/table"
)

// Raw export column names.
const (
	ColAreaCode       = "Area Code"
	ColAreaName       = "Area Name"
	ColAreaType       = "Area Type"
	ColIndicatorName  = "Indicator Name"
	ColCategory       = "Category"
	ColTimePeriod     = "Time period"
	ColTimePeriodSort = "Time period Sortable"
	ColValue          = "Value"
	ColCount          = "Count"
	ColDenominator    = "Denominator"
)

// DefaultAreaType is the area type kept when Options.AreaType is empty.
const DefaultAreaType = "GPs"

var requiredColumns = []string{
	ColAreaCode, ColAreaName, ColAreaType, ColIndicatorName, ColTimePeriod, ColValue,
}

// ErrMissingColumn is returned when the input lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

type Options struct {
	// AreaType filters rows on the "Area Type" column.
	AreaType string
	// GroupByAreaCode selects the latest period per area code instead of per
	// area name. Areas sharing a name are otherwise reduced together.
	GroupByAreaCode bool
}

type cols struct {
	code, name, areaType, indicator, category, period, sortable, value, count, denominator int
}

func resolve(t *table.Table) (cols, error) {
	for _, c := range requiredColumns {
		if !t.HasColumn(c) {
			return cols{}, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return cols{
		code:        t.ColumnIndex(ColAreaCode),
		name:        t.ColumnIndex(ColAreaName),
		areaType:    t.ColumnIndex(ColAreaType),
		indicator:   t.ColumnIndex(ColIndicatorName),
		category:    t.ColumnIndex(ColCategory),
		period:      t.ColumnIndex(ColTimePeriod),
		sortable:    t.ColumnIndex(ColTimePeriodSort),
		value:       t.ColumnIndex(ColValue),
		count:       t.ColumnIndex(ColCount),
		denominator: t.ColumnIndex(ColDenominator),
	}, nil
}

func cell(row []string, i int) string {
	if i < 0 {
		return ""
	}
	return row[i]
}

type seriesKey struct {
	area, indicator, category string
}

type areaKey struct {
	code, name string
}

// Transform pivots t. See the package documentation for the shape of the
// result.
func Transform(t *table.Table, opts Options) (*table.Table, error) {
	c, err := resolve(t)
	if err != nil {
		return nil, err
	}
	areaType := opts.AreaType
	if areaType == "" {
		areaType = DefaultAreaType
	}

	periodCol := c.period
	if c.sortable >= 0 {
		periodCol = c.sortable
	}

	rows := t.Filter(func(row []string) bool {
		return row[c.areaType] == areaType
	}).Rows

	series := func(row []string) seriesKey {
		area := row[c.name]
		if opts.GroupByAreaCode {
			area = row[c.code]
		}
		category := cell(row, c.category)
		if table.IsEmptyCell(category) {
			category = ""
		}
		return seriesKey{area: area, indicator: row[c.indicator], category: category}
	}

	latest := map[seriesKey]string{}
	for _, row := range rows {
		k := series(row)
		p := row[periodCol]
		if cur, ok := latest[k]; !ok || table.ComparePeriods(p, cur) > 0 {
			latest[k] = p
		}
	}

	header := []string{ColAreaCode, ColAreaName}
	colPos := map[string]int{}
	var order []areaKey
	records := map[areaKey]map[string]string{}

	set := func(rec map[string]string, col, v string) {
		if _, ok := colPos[col]; !ok {
			colPos[col] = len(header)
			header = append(header, col)
		}
		rec[col] = v
	}

	for _, row := range rows {
		k := series(row)
		if table.ComparePeriods(row[periodCol], latest[k]) != 0 {
			continue
		}
		ak := areaKey{code: row[c.code], name: row[c.name]}
		rec, ok := records[ak]
		if !ok {
			rec = map[string]string{}
			records[ak] = rec
			order = append(order, ak)
		}

		suffix := k.indicator
		if k.category != "" {
			suffix += "_" + k.category
		}
		set(rec, "Value_"+suffix, row[c.value])
		set(rec, "Time period_"+suffix, row[c.period])
		if v := cell(row, c.count); !table.IsEmptyCell(v) {
			set(rec, "Count_"+suffix, v)
		}
		if v := cell(row, c.denominator); !table.IsEmptyCell(v) {
			set(rec, "Denominator_"+suffix, v)
		}
	}

	out := table.New(header)
	for _, ak := range order {
		row := make([]string, len(header))
		row[0], row[1] = ak.code, ak.name
		for col, v := range records[ak] {
			row[colPos[col]] = v
		}
		out.Rows = append(out.Rows, row)
	}
	return out.DropEmptyColumns(ColAreaCode, ColAreaName), nil
}

// ProcessFile reads the raw CSV at in, pivots it and writes the result to out.
func ProcessFile(ctx context.Context, in, out string, opts Options) (*table.Table, error) {
	l := log.ForService("pivot")
	start := time.Now()

	raw, err := table.ReadCSVFile(in)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", in, err)
	}
	l.Debugf("read %d rows from %s", raw.Len(), in)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wide, err := Transform(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("pivoting %s: %w", in, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := table.WriteCSVFile(out, wide); err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}
	l.Infof("pivoted %d rows into %d areas and %d columns in %s, saved to %s",
		raw.Len(), wide.Len(), len(wide.Header), time.Since(start).Round(time.Millisecond), out)
	return wide, nil
}

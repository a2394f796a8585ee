package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	ex "gti/data/extensions"
	c "gti/service/core"
)

const (
	IndexSheet       = "Index"
	DiagnosticsSheet = "Diagnostics"
	ReferenceSheet   = "Reference"
)

var ErrUnknownFormat = errors.New("unknown export format")

var indexHeader = []string{"timestamp", "raw", "adjusted", "cumulative", "scaled", "penalized"}

// WriteFile picks the format from the extension, .csv or .xlsx
func WriteFile(path string, res *c.IndexResult) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating export file %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".csv" {
		err = WriteCSV(f, res)
	} else {
		err = WriteXLSX(f, res)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes one row per index point
func WriteCSV(w io.Writer, res *c.IndexResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(indexHeader); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, p := range res.Points {
		record := []string{
			ex.FmtShort(p.Timestamp),
			formatFloat(p.Raw),
			formatFloat(p.Adjusted),
			formatFloat(p.Cumulative),
			formatFloat(p.Scaled),
			strconv.FormatBool(p.Penalized),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing csv row for %s: %w", ex.FmtShort(p.Timestamp), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with the index points, the run diagnostics and, when
// present, the rebased reference series
func WriteXLSX(w io.Writer, res *c.IndexResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", IndexSheet); err != nil {
		return fmt.Errorf("error naming index sheet: %w", err)
	}
	if err := writeRows(f, IndexSheet, indexRows(res)); err != nil {
		return err
	}

	if _, err := f.NewSheet(DiagnosticsSheet); err != nil {
		return fmt.Errorf("error adding diagnostics sheet: %w", err)
	}
	if err := writeRows(f, DiagnosticsSheet, diagnosticRows(res)); err != nil {
		return err
	}

	if len(res.Reference) > 0 {
		if _, err := f.NewSheet(ReferenceSheet); err != nil {
			return fmt.Errorf("error adding reference sheet: %w", err)
		}
		rows := [][]any{{"timestamp", "value"}}
		for _, r := range res.Reference {
			rows = append(rows, []any{ex.FmtShort(r.Timestamp), r.Value})
		}
		if err := writeRows(f, ReferenceSheet, rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func indexRows(res *c.IndexResult) [][]any {
	header := make([]any, len(indexHeader))
	for i, h := range indexHeader {
		header[i] = h
	}

	rows := [][]any{header}
	for _, p := range res.Points {
		rows = append(rows, []any{ex.FmtShort(p.Timestamp), p.Raw, p.Adjusted, p.Cumulative, p.Scaled, p.Penalized})
	}
	return rows
}

func diagnosticRows(res *c.IndexResult) [][]any {
	d := res.Diagnostics
	rows := [][]any{
		{"latest", nullable(res.Latest.Valid, res.Latest.Float64)},
		{"band", string(res.Band)},
		{"total_weight", d.TotalWeight},
		{"active_symbols", strings.Join(d.ActiveSymbols, ",")},
		{"penalty_threshold", nullable(d.PenaltyThreshold.Valid, d.PenaltyThreshold.Float64)},
		{"penalized_periods", d.PenalizedPeriods},
		{"volatility", nullable(res.Stats.Volatility.Valid, res.Stats.Volatility.Float64)},
		{"sharpe_like", nullable(res.Stats.SharpeLike.Valid, res.Stats.SharpeLike.Float64)},
		{"max_drawdown", nullable(res.Stats.MaxDrawdown.Valid, res.Stats.MaxDrawdown.Float64)},
		{"correlation_to_reference", nullable(res.Stats.CorrelationToReference.Valid, res.Stats.CorrelationToReference.Float64)},
		{},
		{"excluded_symbol", "reason"},
	}
	for _, e := range d.Excluded {
		rows = append(rows, []any{e.Symbol, e.Reason})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func nullable(valid bool, v float64) any {
	if !valid {
		return ""
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package xlsx writes a workbook codebook covering every generated year.
package xlsx

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/cps-dct/internal/adapters/cps/spec"
	"github.com/csg33k/cps-dct/internal/domain"
)

const summarySheet = "Summary"

var yearHeader = []string{"Variable", "Type", "Start", "End", "Width", "Declared", "Decimals"}

// SheetName is the worksheet holding one year's entries, e.g. "2015".
func SheetName(year string) string { return "20" + year }

// WriteCodebook writes a Summary sheet followed by one sheet per year,
// ordered by year.
func WriteCodebook(dicts []domain.Dictionary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sorted := append([]domain.Dictionary(nil), dicts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	// Summary
	writeRow(f, summarySheet, 1, []any{"Year", "Source", "Variables", "Record length"})
	f.SetCellStyle(summarySheet, "A1", "D1", bold)
	for i, d := range sorted {
		writeRow(f, summarySheet, i+2, []any{SheetName(d.Year), d.Source, len(d.Entries), recordLength(d)})
	}
	f.SetColWidth(summarySheet, "A", "A", 10)
	f.SetColWidth(summarySheet, "B", "B", 40)
	f.SetColWidth(summarySheet, "C", "D", 14)

	for _, d := range sorted {
		sheet := SheetName(d.Year)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
		header := make([]any, len(yearHeader))
		for i, h := range yearHeader {
			header[i] = h
		}
		writeRow(f, sheet, 1, header)
		last, _ := excelize.ColumnNumberToName(len(yearHeader))
		f.SetCellStyle(sheet, "A1", last+"1", bold)

		for i, e := range d.Entries {
			var decimals any
			if n := spec.ImpliedDecimals(e.Name); n > 0 {
				decimals = n
			}
			writeRow(f, sheet, i+2, []any{
				e.Name, e.Type.String(), e.Start, e.End, e.Width(), e.DeclaredLength, decimals,
			})
		}
		f.SetColWidth(sheet, "A", "A", 14)
		f.SetColWidth(sheet, "B", last, 10)
		f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	f.SetSheetRow(sheet, cell, &values)
}

// recordLength is the highest end offset, i.e. the shortest record that
// holds every kept field.
func recordLength(d domain.Dictionary) int {
	n := 0
	for _, e := range d.Entries {
		n = max(n, e.End)
	}
	return n
}

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// sheetKinds lists the substrings used to bucket a report CSV's
// basename into a workbook sheet, in the order the original exporter
// checked them.
var sheetKinds = []Kind{KindAccount, KindOrder, KindProphecy, KindTrader}

// AssembleWorkbook globs dir for CSVs produced by Writer whose name
// contains prefix and both the start/end date stamps, groups them
// into one sheet per Kind by filename substring match, and writes a
// single workbook to dir/<prefix>_summary_<start>_<end>_<wallTimestamp>.xlsx,
// mirroring the original bot's search_and_export_to_excel.
func AssembleWorkbook(dir, prefix string, start, end, wallTimestamp time.Time) (string, error) {
	startStamp := start.Format("20060102")
	endStamp := end.Format("20060102")

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("globbing report directory: %w", err)
	}

	var relevant []string
	for _, m := range matches {
		base := filepath.Base(m)
		if strings.Contains(base, prefix) && strings.Contains(base, startStamp) && strings.Contains(base, endStamp) {
			relevant = append(relevant, m)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	wrote := false
	for _, path := range relevant {
		sheet := sheetNameFor(filepath.Base(path))
		if err := appendCSVToSheet(f, path, sheet); err != nil {
			return "", err
		}
		wrote = true
	}
	if !wrote {
		if _, err := f.NewSheet("Default"); err != nil {
			return "", fmt.Errorf("creating default sheet: %w", err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("removing default sheet: %w", err)
	}

	outName := fmt.Sprintf("%s_summary_%s_%s_%s.xlsx", prefix, startStamp, endStamp, wallTimestamp.Format("20060102T150405"))
	outPath := filepath.Join(dir, outName)
	if err := f.SaveAs(outPath); err != nil {
		return "", fmt.Errorf("saving workbook %q: %w", outPath, err)
	}
	return outPath, nil
}

func sheetNameFor(baseName string) string {
	lower := strings.ToLower(baseName)
	for _, k := range sheetKinds {
		if strings.Contains(lower, string(k)) {
			return string(k)
		}
	}
	return strings.TrimSuffix(baseName, filepath.Ext(baseName))
}

func appendCSVToSheet(f *excelize.File, path, sheet string) error {
	file, err := os.Open(path) // #nosec G304 -- path comes from our own Glob over the report directory
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %q: %w", sheet, err)
		}
	}

	startRow, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading existing rows of %q: %w", sheet, err)
	}
	nextRow := len(startRow) + 1

	for _, row := range rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, nextRow)
		if err != nil {
			return fmt.Errorf("computing cell for %q row %d: %w", sheet, nextRow, err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing %q row %d: %w", sheet, nextRow, err)
		}
		nextRow++
	}
	return nil
}

package summarizer

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-fetch-datasets/models"
	"github.com/aluiziolira/go-fetch-datasets/stats"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Excel summarizes the first sheet of a workbook: its first row is the header,
// numeric columns get count/mean/std/min/quartiles/max.
//
// OOXML workbooks are read with excelize; legacy BIFF8 .xls files fall back to
// a binary reader. A file neither can open, and a sheet without rows, is
// reported as a ParseError wrapping models.ErrNoData.
func (s *Summarizer) Excel(path string) (*models.Report, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &models.ReadError{Path: path, Err: err}
	}

	rows, err := s.readWorkbookRows(path)
	if err != nil {
		return nil, excelError(path, err)
	}

	headers := columnNames(rows)
	data := rows[1:]

	report := models.NewReport(models.FormatExcel, path)
	report.Add("total_rows", len(data))
	report.Add("total_columns", len(headers))
	report.Add("column_names", headers)

	for col, name := range headers {
		values, ok := numericColumn(data, col)
		if !ok {
			continue
		}
		d, err := stats.Describe(values)
		if err != nil {
			continue
		}
		report.Add(name+".count", d.Count)
		report.Add(name+".mean", formatNumber(d.Mean))
		report.Add(name+".std", formatNumber(d.Std))
		report.Add(name+".min", formatNumber(d.Min))
		report.Add(name+".25%", formatNumber(d.Q1))
		report.Add(name+".50%", formatNumber(d.Median))
		report.Add(name+".75%", formatNumber(d.Q3))
		report.Add(name+".max", formatNumber(d.Max))
	}
	return report, nil
}

// readWorkbookRows returns the rows of the first sheet, trying excelize first
// and the legacy reader second.
func (s *Summarizer) readWorkbookRows(path string) ([][]string, error) {
	rows, err := xlsxRows(path)
	if err == nil {
		return rows, nil
	}

	legacy, legacyErr := legacyRows(path)
	if legacyErr != nil {
		return nil, fmt.Errorf("%v; legacy reader: %v", err, legacyErr)
	}
	s.logger.Debug("read legacy workbook", slog.String("path", path), slog.Int("rows", len(legacy)))
	return legacy, nil
}

func xlsxRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %v", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return rows, nil
}

// maxLegacyColumns is the BIFF8 column limit.
const maxLegacyColumns = 256

// legacyRows reads the first sheet of a BIFF8 workbook. The reader panics on
// some malformed records, so panics are turned into errors.
func legacyRows(path string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("malformed legacy workbook: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %v", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, fmt.Errorf("legacy workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("legacy workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, legacyRow(sheet, i))
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}
	return rows, nil
}

// legacyRow returns the cells of row i with trailing blanks removed; a row
// the sheet does not define is empty.
func legacyRow(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	width := row.LastCol()
	if width <= 0 || width > maxLegacyColumns {
		width = maxLegacyColumns
	}
	cells = make([]string, width)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func excelError(path string, err error) error {
	return &models.ParseError{
		Path:   path,
		Format: models.FormatExcel,
		Err:    fmt.Errorf("%w: %v", models.ErrNoData, err),
	}
}

// columnNames returns the header row padded to the widest row; blank headers
// become "Unnamed: <index>".
func columnNames(rows [][]string) []string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	names := make([]string, width)
	for i := range names {
		if i < len(rows[0]) {
			names[i] = strings.TrimSpace(rows[0][i])
		}
		if names[i] == "" {
			names[i] = "Unnamed: " + strconv.Itoa(i)
		}
	}
	return names
}

// numericColumn collects the values of column col. It reports false when any
// non-blank cell is not a number or the column has no values at all.
func numericColumn(rows [][]string, col int) ([]float64, bool) {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
	}
	return values, len(values) > 0
}

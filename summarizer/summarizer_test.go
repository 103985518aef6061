package summarizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aluiziolira/go-fetch-datasets/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func metricInt(t *testing.T, r *models.Report, name string) int {
	t.Helper()
	v, ok := r.Int(name)
	require.True(t, ok, "metric %q missing in %+v", name, r.Metrics)
	return v
}

func TestTextSummary(t *testing.T) {
	path := writeFile(t, "data.txt", "The the fox")

	report, err := New(nil).Text(path)
	require.NoError(t, err)
	assert.Equal(t, 3, metricInt(t, report, "total_words"))
	assert.Equal(t, 2, metricInt(t, report, "unique_words"))
	assert.Equal(t, models.FormatText, report.Format)
}

func TestTextSummaryEmptyFile(t *testing.T) {
	path := writeFile(t, "data.txt", "")

	report, err := New(nil).Text(path)
	require.NoError(t, err)
	assert.Equal(t, 0, metricInt(t, report, "total_words"))
	assert.Equal(t, 0, metricInt(t, report, "unique_words"))
}

func TestTextSummaryMissingFile(t *testing.T) {
	_, err := New(nil).Text(filepath.Join(t.TempDir(), "missing.txt"))
	var readErr *models.ReadError
	require.ErrorAs(t, err, &readErr)
}

func TestCSVSummary(t *testing.T) {
	path := writeFile(t, "data.csv", "country,score\nFinland,7.8\n,7.6\nSwitzerland,7.5\n")

	report, err := New(nil).CSV(path)
	require.NoError(t, err)
	assert.Equal(t, 3, metricInt(t, report, "total_rows"))
	assert.Equal(t, 2, metricInt(t, report, "total_columns"))
	assert.Equal(t, 2, metricInt(t, report, "column.country"))
	assert.Equal(t, 3, metricInt(t, report, "column.score"))
}

func TestCSVSummaryEmptyAndHeaderOnly(t *testing.T) {
	empty := writeFile(t, "empty.csv", "")
	report, err := New(nil).CSV(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, metricInt(t, report, "total_rows"))

	headerOnly := writeFile(t, "header.csv", "\ufeffa,b\n")
	report, err = New(nil).CSV(headerOnly)
	require.NoError(t, err)
	assert.Equal(t, 0, metricInt(t, report, "total_rows"))
	assert.Equal(t, 0, metricInt(t, report, "column.a"), "BOM should be stripped from the first header")
}

func TestCSVSummaryRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "a,b\n1\n2,3,4\n")

	report, err := New(nil).CSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, metricInt(t, report, "total_rows"))
	assert.Equal(t, 2, metricInt(t, report, "column.a"))
	assert.Equal(t, 1, metricInt(t, report, "column.b"))
}

func TestCSVSummaryMalformed(t *testing.T) {
	path := writeFile(t, "bad.csv", "a,b\n\"unterminated,1\n")

	_, err := New(nil).CSV(path)
	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, models.FormatCSV, parseErr.Format)
}

func TestCSVSummaryDoesNotModifyInput(t *testing.T) {
	content := "a,b\n1,2\n"
	path := writeFile(t, "data.csv", content)

	_, err := New(nil).CSV(path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestJSONSummary(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantItems int
		wantKeys  string
	}{
		{name: "array of objects", content: `[{"b": 1, "a": 2}, {"c": 3}]`, wantItems: 2, wantKeys: "a, b"},
		{name: "single object", content: `{"message": "success", "number": 3, "people": []}`, wantItems: 1},
		{name: "empty array", content: `[]`, wantItems: 0},
		{name: "array of scalars", content: `[1, 2, 3]`, wantItems: 3},
		{name: "scalar", content: `42`, wantItems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.json", tt.content)
			report, err := New(nil).JSON(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, metricInt(t, report, "items"))

			keys, ok := report.Get("keys")
			if tt.wantKeys == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestJSONSummaryMalformed(t *testing.T) {
	for _, content := range []string{`{"a": `, ``, `{} trailing`} {
		path := writeFile(t, "bad.json", content)
		_, err := New(nil).JSON(path)
		var parseErr *models.ParseError
		require.ErrorAs(t, err, &parseErr, "content %q", content)
		assert.Equal(t, "parse", models.KindOf(err))
	}
}

func saveWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelSummary(t *testing.T) {
	path := saveWorkbook(t, [][]any{
		{"breed", "weight", "age"},
		{"angus", 500, 3},
		{"hereford", 600, 4},
		{"jersey", 400, 5},
		{"holstein", 700, 6},
	})

	report, err := New(nil).Excel(path)
	require.NoError(t, err)
	assert.Equal(t, 4, metricInt(t, report, "total_rows"))
	assert.Equal(t, 3, metricInt(t, report, "total_columns"))

	names, _ := report.Get("column_names")
	assert.Equal(t, "breed, weight, age", names)

	assert.Equal(t, 4, metricInt(t, report, "weight.count"))
	mean, _ := report.Get("weight.mean")
	assert.Equal(t, "550", mean)
	minV, _ := report.Get("weight.min")
	assert.Equal(t, "400", minV)
	q1, _ := report.Get("weight.25%")
	assert.Equal(t, "475", q1)
	median, _ := report.Get("age.50%")
	assert.Equal(t, "4.5", median)

	_, ok := report.Get("breed.mean")
	assert.False(t, ok, "text columns have no statistics")
}

func TestExcelSummaryUnnamedColumns(t *testing.T) {
	path := saveWorkbook(t, [][]any{
		{"a"},
		{1, 2},
	})

	report, err := New(nil).Excel(path)
	require.NoError(t, err)
	names, _ := report.Get("column_names")
	assert.Equal(t, "a, Unnamed: 1", names)
}

func TestExcelSummaryLegacyWorkbook(t *testing.T) {
	dir := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("testdata", "cattle.xls"))
	require.NoError(t, err)
	path := filepath.Join(dir, "data.xls")
	require.NoError(t, os.WriteFile(path, fixture, 0o644))

	report, err := New(nil).Summarize(models.FormatExcel, path)
	require.NoError(t, err)
	assert.Equal(t, 4, metricInt(t, report, "total_rows"))
	assert.Equal(t, 3, metricInt(t, report, "total_columns"))

	names, _ := report.Get("column_names")
	assert.Equal(t, "Breed, Weight, Age", names)

	assert.Equal(t, 4, metricInt(t, report, "Weight.count"))
	mean, _ := report.Get("Weight.mean")
	assert.Equal(t, "550", mean)
	maxV, _ := report.Get("Weight.max")
	assert.Equal(t, "700", maxV)
	median, _ := report.Get("Age.50%")
	assert.Equal(t, "4.5", median)

	_, ok := report.Get("Breed.mean")
	assert.False(t, ok, "text columns have no statistics")
}

func TestExcelSummaryUnreadable(t *testing.T) {
	legacy := writeFile(t, "data.xls", "\xd0\xcf\x11\xe0 not a zip workbook")

	_, err := New(nil).Excel(legacy)
	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestExcelSummaryEmptySheet(t *testing.T) {
	path := saveWorkbook(t, nil)

	_, err := New(nil).Excel(path)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestExcelSummaryMissingFile(t *testing.T) {
	_, err := New(nil).Excel(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Equal(t, "read", models.KindOf(err))
}

func TestSummarizeDispatch(t *testing.T) {
	path := writeFile(t, "data.txt", "a b a")

	report, err := New(nil).Summarize(models.FormatText, path)
	require.NoError(t, err)
	assert.Equal(t, 2, metricInt(t, report, "unique_words"))

	_, err = New(nil).Summarize(models.Format("yaml"), path)
	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, models.Format("yaml"), parseErr.Format)
	assert.Equal(t, "parse", models.KindOf(err))
}

// Package exporter encodes a filtered subset of sales records as CSV
// or xlsx for dashboard downloads.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/config"
	"salespulse/internal/sales"
)

// Format selects the download encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// ParseFormat validates a format string, defaulting to CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for download responses.
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds the download name for a region's export, e.g.
// "East_sales.csv". Characters unsafe in filenames are replaced.
func Filename(region string, format Format) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, region)
	if safe == "" {
		safe = "all"
	}
	return fmt.Sprintf("%s_sales.%s", safe, format)
}

var header = []string{"Date", "Region", "Product", "Sales"}

func rows(subset []sales.SalesRecord) [][]string {
	out := make([][]string, 0, len(subset))
	for _, r := range subset {
		out = append(out, []string{
			r.Date.Format("2006-01-02"),
			r.Region,
			r.Product,
			strconv.FormatFloat(r.Amount, 'f', -1, 64),
		})
	}
	return out
}

// WriteCSV encodes the subset as CSV with a UTF-8 BOM so Excel opens
// it correctly.
func WriteCSV(w io.Writer, subset []sales.SalesRecord) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows(subset) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteExcel encodes the subset as a single-sheet xlsx workbook.
func WriteExcel(w io.Writer, subset []sales.SalesRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := stream.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range subset {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []interface{}{r.Date.Format("2006-01-02"), r.Region, r.Product, r.Amount}
		if err := stream.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush stream: %w", err)
	}
	return f.Write(w)
}

// Write dispatches to the encoder for the given format.
func Write(w io.Writer, subset []sales.SalesRecord, format Format) error {
	if format == FormatExcel {
		return WriteExcel(w, subset)
	}
	return WriteCSV(w, subset)
}

// WriteForecastCSV encodes a forecast as CSV: one row per predicted
// month with the point estimate and confidence bounds. Historical
// months carry the actual value where one exists.
func WriteForecastCSV(w io.Writer, result sales.ForecastResult) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Month", "Actual", "Predicted", "Lower", "Upper"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	actual := make(map[string]float64, len(result.Actual))
	for _, p := range result.Actual {
		actual[p.Date.Format("2006-01")] = p.Value
	}

	fmtVal := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

	if result.Insufficient {
		for _, p := range result.Actual {
			row := []string{p.Date.Format("2006-01"), fmtVal(p.Value), "", "", ""}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	} else {
		for i, p := range result.Predicted {
			month := p.Date.Format("2006-01")
			actualCell := ""
			if v, ok := actual[month]; ok {
				actualCell = fmtVal(v)
			}
			row := []string{
				month,
				actualCell,
				fmtVal(p.Value),
				fmtVal(result.Lower[i].Value),
				fmtVal(result.Upper[i].Value),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// FileWriter saves exports under the configured exports directory.
type FileWriter struct {
	paths *config.Paths
}

// NewFileWriter creates a file-based export writer.
func NewFileWriter(paths *config.Paths) *FileWriter {
	return &FileWriter{paths: paths}
}

// Save writes the subset to exports/<region>_sales.<format> and
// returns the full path.
func (fw *FileWriter) Save(region string, subset []sales.SalesRecord, format Format) (string, error) {
	path := fw.paths.GetExportPath(Filename(region, format))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create exports directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, subset, format); err != nil {
		return "", err
	}
	return path, nil
}

// SaveForecast writes exports/<region>_forecast.csv and returns the
// full path.
func (fw *FileWriter) SaveForecast(region string, result sales.ForecastResult) (string, error) {
	name := strings.TrimSuffix(Filename(region, FormatCSV), "_sales.csv") + "_forecast.csv"
	path := fw.paths.GetExportPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create exports directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create forecast file: %w", err)
	}
	defer f.Close()

	if err := WriteForecastCSV(f, result); err != nil {
		return "", err
	}
	return path, nil
}

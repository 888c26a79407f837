package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the sheet name length Excel accepts.
const maxSheetName = 31

// ExcelizeWriter builds a multi-sheet workbook, one row per call. Rows
// are written with SetSheetRow so a table dump stays a single pass.
type ExcelizeWriter struct {
	f           *excelize.File
	sheet       string
	row         int
	headerStyle int
}

// NewExcelizeWriter creates an empty workbook.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{f: excelize.NewFile()}
}

// AddSheet starts a new sheet; subsequent writes go to it.
func (w *ExcelizeWriter) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.sheet == "" {
		// A fresh workbook already contains "Sheet1"; take it over
		// instead of leaving an empty sheet in the report.
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename first sheet to %q: %w", name, err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %q: %w", name, err)
	}
	w.sheet = name
	w.row = 0
	return nil
}

func (w *ExcelizeWriter) writeRow(values []interface{}) error {
	if w.sheet == "" {
		return fmt.Errorf("write before any sheet was added")
	}
	w.row++
	ref, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(w.sheet, ref, &values)
}

// WriteHeader writes a bold column header row.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeRow(values); err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}
	if w.headerStyle == 0 {
		style, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		w.headerStyle = style
	}
	first, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), w.row)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, first, last, w.headerStyle)
}

// WriteRow appends one data row to the current sheet.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	return w.writeRow(row)
}

// Save streams the workbook to wr.
func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.f.Write(wr)
}

// SaveToFile writes the workbook to disk.
func (w *ExcelizeWriter) SaveToFile(path string) error {
	return w.f.SaveAs(path)
}

// Close releases the workbook.
func (w *ExcelizeWriter) Close() error {
	return w.f.Close()
}

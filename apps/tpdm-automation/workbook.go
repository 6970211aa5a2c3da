package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet as read from an input workbook. Header holds the raw
// header cells (possibly blank); every data row is padded to len(Header).
type Sheet struct {
	Name        string
	HeaderRow   int // 1-based row of the header
	FirstColumn int // 1-based column of Header[0]
	Header      []string
	Rows        []SheetRow
}

// SheetRow is one data row and its 1-based position in the worksheet.
type SheetRow struct {
	Number int
	Cells  []Value
}

// SheetGrid is one worksheet to be written: a header and its data rows.
type SheetGrid struct {
	Title  string
	Header []string
	Rows   [][]Value
}

// Excel's built-in number formats that render a date or time.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

// readSheets opens an .xlsx workbook and returns every worksheet in file order.
func readSheets(path string) ([]Sheet, error) {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".xlsm") {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	r := &sheetReader{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		sheet, err := r.read(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

type sheetReader struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool // style id -> renders as date
}

func (r *sheetReader) read(name string) (Sheet, error) {
	sheet := Sheet{Name: name}

	formatted, err := r.f.GetRows(name)
	if err != nil {
		return sheet, err
	}
	raw, err := r.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet, err
	}

	// The used range starts at the first non-blank row and column, like the
	// worksheet dimension does.
	first := -1
	for i, row := range formatted {
		if !blankRow(row) {
			first = i
			break
		}
	}
	if first < 0 {
		return sheet, nil
	}

	startCol, width := -1, 0
	for _, row := range formatted[first:] {
		for j, cell := range row {
			if cell != "" && (startCol < 0 || j < startCol) {
				startCol = j
			}
		}
		if len(row) > width {
			width = len(row)
		}
	}
	width -= startCol

	sheet.HeaderRow = first + 1
	sheet.FirstColumn = startCol + 1
	sheet.Header = make([]string, width)
	for j := 0; j < width; j++ {
		sheet.Header[j] = cellAt(formatted, first, startCol+j)
	}

	for i := first + 1; i < len(formatted); i++ {
		cells := make([]Value, width)
		for j := 0; j < width; j++ {
			col := startCol + j
			cells[j], err = r.cell(name, i, col, cellAt(formatted, i, col), cellAt(raw, i, col))
			if err != nil {
				return sheet, err
			}
		}
		sheet.Rows = append(sheet.Rows, SheetRow{Number: i + 1, Cells: cells})
	}

	return sheet, nil
}

// cell types a single cell. Numbers carrying a date format become dates;
// anything else that is not numeric passes through as the displayed string.
func (r *sheetReader) cell(sheet string, row, col int, formatted, raw string) (Value, error) {
	if formatted == "" && raw == "" {
		return EmptyValue(), nil
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Value{}, err
	}
	typ, err := r.f.GetCellType(sheet, axis)
	if err != nil {
		return Value{}, err
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return StringValue(formatted), nil
		}
		if r.isDateCell(sheet, axis) {
			if t, err := excelize.ExcelDateToTime(n, r.date1904); err == nil {
				return DateValue(t), nil
			}
		}
		return NumberValue(n), nil

	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateValue(t), nil
			}
		}
		return StringValue(formatted), nil

	default:
		return StringValue(formatted), nil
	}
}

func (r *sheetReader) isDateCell(sheet, axis string) bool {
	id, err := r.f.GetCellStyle(sheet, axis)
	if err != nil || id == 0 {
		return false
	}
	if isDate, ok := r.styles[id]; ok {
		return isDate
	}

	isDate := false
	if style, err := r.f.GetStyle(id); err == nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = builtinDateFormats[style.NumFmt]
		}
	}
	r.styles[id] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format renders a date.
func isDateFormatCode(code string) bool {
	lower := strings.ToLower(code)
	// Quoted literals and bracketed colors/conditions never carry date tokens.
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range lower {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '[' && !inQuote:
			inBracket = true
		case r == ']' && !inQuote:
			inBracket = false
		case !inQuote && !inBracket:
			b.WriteRune(r)
		}
	}
	stripped := b.String()
	return strings.ContainsAny(stripped, "yd") || strings.Contains(stripped, "mmm")
}

func cellAt(grid [][]string, row, col int) string {
	if row >= len(grid) || col >= len(grid[row]) {
		return ""
	}
	return grid[row][col]
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// writeWorkbook writes grids as worksheets of a new workbook at path. Headers
// are bold and column widths are fitted to their content. The file appears
// only once it is completely written.
func writeWorkbook(path string, grids ...SheetGrid) error {
	if len(grids) == 0 {
		return fmt.Errorf("no worksheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, grid := range grids {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), grid.Title); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", grid.Title, err)
			}
		} else if _, err := f.NewSheet(grid.Title); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", grid.Title, err)
		}
		if err := writeGrid(f, grid, bold); err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", grid.Title, err)
		}
	}
	f.SetActiveSheet(0)

	return writeAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
}

func writeGrid(f *excelize.File, grid SheetGrid, headerStyle int) error {
	widths := make([]int, len(grid.Header))

	header := make([]interface{}, len(grid.Header))
	for j, name := range grid.Header {
		header[j] = name
		widths[j] = utf8.RuneCountInString(name)
	}
	if err := f.SetSheetRow(grid.Title, "A1", &header); err != nil {
		return err
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(grid.Title, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for i, values := range grid.Rows {
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v.cellValue()
			if j < len(widths) {
				widths[j] = max(widths[j], utf8.RuneCountInString(v.String()))
			}
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(grid.Title, start, &row); err != nil {
			return err
		}
	}

	for j, w := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		width := float64(min(max(w+2, minColumnWidth), maxColumnWidth))
		if err := f.SetColWidth(grid.Title, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic streams content to a temp file next to path and renames it into
// place, so a failed write never leaves a partial file behind.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

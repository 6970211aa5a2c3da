package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// CommentColumn is the header holding the free-text comment to classify.
const CommentColumn = "Delegate Comments"

// Row is one data row of one input sheet.
type Row struct {
	SourceSheet string
	RowNumber   int
	Columns     []string // keys of Values in source column order
	Values      map[string]Value
	Comment     string
	Label       Label // set once by classifyRows
}

// Value returns the cell stored under key and whether the row has that column.
func (r *Row) Value(key string) (Value, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// buildRows flattens every worksheet into rows, preserving sheet order and
// row order. Sheets without data rows contribute nothing.
func buildRows(sheets []Sheet, logger *zap.Logger) []*Row {
	var rows []*Row

	for _, sheet := range sheets {
		if len(sheet.Rows) == 0 {
			logger.Debug("Skipping sheet without data rows", zap.String("sheet", sheet.Name))
			continue
		}

		columns := headerNames(sheet)
		commentIdx := findCommentColumn(columns)
		if commentIdx < 0 {
			logger.Warn("Sheet has no comment column; comments default to empty",
				zap.String("sheet", sheet.Name),
				zap.String("column", CommentColumn),
			)
		}

		for _, src := range sheet.Rows {
			row := &Row{
				SourceSheet: sheet.Name,
				RowNumber:   src.Number,
				Values:      make(map[string]Value, len(columns)),
			}

			for j, column := range columns {
				value := EmptyValue()
				if j < len(src.Cells) {
					value = src.Cells[j]
				}
				if _, seen := row.Values[column]; !seen {
					row.Columns = append(row.Columns, column)
				}
				// A repeated header keeps its first position and its last value.
				row.Values[column] = value
			}

			if commentIdx >= 0 && commentIdx < len(src.Cells) {
				row.Comment = src.Cells[commentIdx].String()
			}

			rows = append(rows, row)
		}

		logger.Debug("Ingested sheet",
			zap.String("sheet", sheet.Name),
			zap.Int("rows", len(sheet.Rows)),
			zap.Int("columns", len(columns)),
		)
	}

	return rows
}

// headerNames returns one non-empty key per column. Blank header cells are
// replaced by Column<N>, N being the 1-based worksheet column.
func headerNames(sheet Sheet) []string {
	first := sheet.FirstColumn
	if first < 1 {
		first = 1
	}

	names := make([]string, len(sheet.Header))
	for j, header := range sheet.Header {
		if header == "" {
			names[j] = fmt.Sprintf("Column%d", first+j)
			continue
		}
		names[j] = norm.NFC.String(header)
	}
	return names
}

// findCommentColumn returns the index of the left-most header equal to
// CommentColumn ignoring case, or -1.
func findCommentColumn(columns []string) int {
	for i, column := range columns {
		if strings.EqualFold(column, CommentColumn) {
			return i
		}
	}
	return -1
}

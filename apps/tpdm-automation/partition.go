package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// PredictedActionColumn is appended as the last column of every output sheet.
const PredictedActionColumn = "Predicted Action"

// OutputGroup is the set of rows predicted as one label, ready for export.
type OutputGroup struct {
	Label  Label
	Header []string
	Rows   [][]Value
}

// FileName is the workbook the group is written to.
func (g OutputGroup) FileName() string {
	return fmt.Sprintf("input_%s.xlsx", g.Label)
}

// SheetTitle is the single worksheet inside the group's workbook.
func (g OutputGroup) SheetTitle() string {
	return fmt.Sprintf("%s_Records", g.Label)
}

// partitionRows groups classified rows by label in the fixed label order.
// Labels without rows produce no group.
func partitionRows(rows []*Row) []OutputGroup {
	var groups []OutputGroup
	for _, label := range Labels {
		var members []*Row
		for _, row := range rows {
			if strings.EqualFold(string(row.Label), string(label)) {
				members = append(members, row)
			}
		}
		if len(members) == 0 {
			continue
		}
		groups = append(groups, buildGroup(label, members))
	}
	return groups
}

func buildGroup(label Label, members []*Row) OutputGroup {
	header := unionSchema(members)
	group := OutputGroup{
		Label:  label,
		Header: header,
		Rows:   make([][]Value, 0, len(members)),
	}

	for _, row := range members {
		values := make([]Value, len(header))
		for j, column := range header {
			if column == PredictedActionColumn {
				values[j] = StringValue(string(row.Label))
				continue
			}
			if v, ok := row.Value(column); ok {
				values[j] = v
			} else {
				values[j] = EmptyValue()
			}
		}
		group.Rows = append(group.Rows, values)
	}
	return group
}

// unionSchema returns the sorted union of the rows' column keys followed by
// PredictedActionColumn. An input column already named like the trailing
// column is folded into it.
func unionSchema(rows []*Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for _, column := range row.Columns {
			if column == PredictedActionColumn || seen[column] {
				continue
			}
			seen[column] = true
			columns = append(columns, column)
		}
	}
	sort.Strings(columns)
	return append(columns, PredictedActionColumn)
}

// exportGroups writes one workbook per group into dir and returns the paths
// written, in group order.
func exportGroups(dir string, groups []OutputGroup) ([]string, error) {
	paths := make([]string, 0, len(groups))
	for _, group := range groups {
		path := filepath.Join(dir, group.FileName())
		grid := SheetGrid{
			Title:  group.SheetTitle(),
			Header: group.Header,
			Rows:   group.Rows,
		}
		if err := writeWorkbook(path, grid); err != nil {
			return paths, fmt.Errorf("%w: %s: %w", ErrOutputUnwritable, group.FileName(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

package main

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(sheet string, number int, label Label, kv ...string) *Row {
	row := &Row{
		SourceSheet: sheet,
		RowNumber:   number,
		Values:      make(map[string]Value),
		Label:       label,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		row.Columns = append(row.Columns, kv[i])
		row.Values[kv[i]] = StringValue(kv[i+1])
	}
	return row
}

func TestPartitionRows(t *testing.T) {
	rows := []*Row{
		testRow("Employees", 2, LabelTerm, "ID", "EMP003", "Name", "Bob"),
		testRow("Employees", 3, LabelAdd, "ID", "EMP001", "Name", "John", "Delegate Comments", "New hire"),
		testRow("Contractors", 2, LabelAdd, "ID", "CON001", "Dept", "IT"),
		testRow("Contractors", 3, "", "ID", "CON009"),
	}

	groups := partitionRows(rows)

	want := []OutputGroup{
		{
			Label:  LabelAdd,
			Header: []string{"Delegate Comments", "Dept", "ID", "Name", PredictedActionColumn},
			Rows: [][]Value{
				{StringValue("New hire"), EmptyValue(), StringValue("EMP001"), StringValue("John"), StringValue("ADD")},
				{EmptyValue(), StringValue("IT"), StringValue("CON001"), EmptyValue(), StringValue("ADD")},
			},
		},
		{
			Label:  LabelTerm,
			Header: []string{"ID", "Name", PredictedActionColumn},
			Rows: [][]Value{
				{StringValue("EMP003"), StringValue("Bob"), StringValue("TERM")},
			},
		},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("partitionRows mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionRowsCoversEveryLabelledRow(t *testing.T) {
	var rows []*Row
	for i, label := range []Label{LabelOther, LabelAdd, LabelUpdate, LabelTerm, LabelAdd, LabelOther} {
		rows = append(rows, testRow("Sheet1", i+2, label, "ID", string(rune('A'+i))))
	}

	groups := partitionRows(rows)
	require.Len(t, groups, 4)

	total := 0
	for i, group := range groups {
		assert.Equal(t, Labels[i], group.Label, "groups follow the fixed label order")
		last := len(group.Header) - 1
		assert.Equal(t, PredictedActionColumn, group.Header[last])
		for _, values := range group.Rows {
			assert.Len(t, values, len(group.Header))
			assert.Equal(t, string(group.Label), values[last].Str)
		}
		total += len(group.Rows)
	}
	assert.Equal(t, len(rows), total)
}

func TestPartitionRowsFoldsPredictedActionColumn(t *testing.T) {
	rows := []*Row{
		testRow("Sheet1", 2, LabelUpdate, "Predicted Action", "stale", "ID", "X"),
	}

	groups := partitionRows(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"ID", PredictedActionColumn}, groups[0].Header)
	assert.Equal(t, []Value{StringValue("X"), StringValue("UPDATE")}, groups[0].Rows[0])
}

func TestOutputGroupNames(t *testing.T) {
	g := OutputGroup{Label: LabelTerm}
	assert.Equal(t, "input_TERM.xlsx", g.FileName())
	assert.Equal(t, "TERM_Records", g.SheetTitle())
}

func TestExportGroups(t *testing.T) {
	dir := t.TempDir()
	groups := partitionRows([]*Row{
		testRow("Employees", 2, LabelAdd, "Name", "John", "Delegate Comments", "New hire"),
		testRow("Employees", 3, LabelOther, "Name", "Alice"),
	})

	paths, err := exportGroups(dir, groups)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "input_ADD.xlsx"),
		filepath.Join(dir, "input_OTHER.xlsx"),
	}, paths)

	sheets, err := readSheets(paths[0])
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "ADD_Records", sheets[0].Name)
	assert.Equal(t, []string{"Delegate Comments", "Name", PredictedActionColumn}, sheets[0].Header)
	require.Len(t, sheets[0].Rows, 1)
	assert.Equal(t, []Value{StringValue("New hire"), StringValue("John"), StringValue("ADD")}, sheets[0].Rows[0].Cells)
}

func TestExportGroupsUnwritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	groups := partitionRows([]*Row{testRow("Sheet1", 2, LabelAdd, "ID", "1")})

	paths, err := exportGroups(dir, groups)
	assert.ErrorIs(t, err, ErrOutputUnwritable)
	assert.Empty(t, paths)
}

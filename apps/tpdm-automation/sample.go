package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var sampleHeader = []string{"Employee ID", "Employee Name", "Department", CommentColumn, "Date"}

type sampleRecord struct {
	id, name, dept, comment string
	date                    time.Time
}

var (
	sampleEmployees = []sampleRecord{
		{"EMP001", "John Doe", "IT", "New employee joining the team", sampleDate(15)},
		{"EMP002", "Jane Smith", "HR", "Update contact information", sampleDate(16)},
		{"EMP003", "Bob Johnson", "Finance", "Employee termination effective immediately", sampleDate(17)},
		{"EMP004", "Alice Brown", "Marketing", "Transfer to different location", sampleDate(18)},
		{"EMP005", "Charlie Wilson", "IT", "", sampleDate(19)},
	}
	sampleContractors = []sampleRecord{
		{"CON001", "Mike Davis", "IT", "Add new contractor", sampleDate(20)},
		{"CON002", "Sarah Lee", "Design", "Modify contract terms", sampleDate(21)},
		{"CON003", "Tom Anderson", "Development", "Contract termination", sampleDate(22)},
	}
)

func sampleDate(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

// writeSampleWorkbook writes a two-sheet demo input to path, creating its
// directory when needed.
func writeSampleWorkbook(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeWorkbook(path,
		sampleGrid("Employees", sampleEmployees),
		sampleGrid("Contractors", sampleContractors),
	)
}

func sampleGrid(title string, records []sampleRecord) SheetGrid {
	grid := SheetGrid{Title: title, Header: sampleHeader}
	for _, r := range records {
		grid.Rows = append(grid.Rows, []Value{
			StringValue(r.id),
			StringValue(r.name),
			StringValue(r.dept),
			StringValue(r.comment),
			DateValue(r.date),
		})
	}
	return grid
}

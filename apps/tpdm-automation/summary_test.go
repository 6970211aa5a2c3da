package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrintSummary(t *testing.T) {
	report := &RunReport{
		Rows:   3,
		Counts: map[Label]int{LabelTerm: 1, LabelAdd: 2},
		Files: []string{
			"/tmp/out/input_ADD.xlsx",
			"/tmp/out/input_TERM.xlsx",
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, report)

	want := "\n=== Prediction Summary ===\n" +
		"ADD: 2 records\n" +
		"TERM: 1 records\n" +
		"Total: 3 records\n" +
		"==========================\n" +
		"Created: input_ADD.xlsx\n" +
		"Created: input_TERM.xlsx\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
)

// printSummary writes the per-label prediction counts and the created files.
// Labels are listed by name, not in export order.
func printSummary(w io.Writer, report *RunReport) {
	labels := make([]string, 0, len(report.Counts))
	for label := range report.Counts {
		labels = append(labels, string(label))
	}
	sort.Strings(labels)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Prediction Summary ===")
	for _, label := range labels {
		fmt.Fprintf(w, "%s: %d records\n", label, report.Counts[Label(label)])
	}
	fmt.Fprintf(w, "Total: %d records\n", report.Rows)
	fmt.Fprintln(w, "==========================")

	for _, path := range report.Files {
		fmt.Fprintf(w, "Created: %s\n", filepath.Base(path))
	}
	for _, key := range report.UploadedKeys {
		fmt.Fprintf(w, "Uploaded: %s\n", key)
	}
}

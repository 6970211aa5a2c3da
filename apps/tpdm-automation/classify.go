package main

// classifyRows sets the predicted label of every row using one model for the
// whole run, so identical comments always get the same label.
func classifyRows(model *Model, rows []*Row, metrics *Metrics) {
	for _, row := range rows {
		source := "model"
		if isBlankComment(row.Comment) {
			source = "fallback"
		}
		row.Label = model.Predict(row.Comment)
		metrics.predictions.WithLabelValues(string(row.Label), source).Inc()
	}
}

// labelCounts tallies rows per predicted label.
func labelCounts(rows []*Row) map[Label]int {
	counts := make(map[Label]int)
	for _, row := range rows {
		counts[row.Label]++
	}
	return counts
}

// Package render writes evaluations as a human-readable console report.
//
// Print lists every outlier with its observed time, the baseline it was
// scored against and the deviation multiple, or a single all-clear line.
// PrintNothingToEvaluate explains why no evaluation could be made (empty
// dataset, empty history window, no rows on the evaluated day).
//
// Styles come from lipgloss and are bound to the output writer, so colour is
// dropped automatically when the writer is not a terminal. NoColor forces
// plain output.
package render

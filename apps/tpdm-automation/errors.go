package main

import "errors"

// Error kinds surfaced by the pipeline. Stage errors wrap one of these so the
// top level can report them with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInputUnreadable  = errors.New("input unreadable")
	ErrOutputUnwritable = errors.New("output unwritable")
)

// errNoRows short-circuits a run whose input produced no data rows. It is not a
// failure, but the process still exits non-zero.
var errNoRows = errors.New("no data found in input workbook")

const (
	exitOK     = 0
	exitFailed = 1
	exitNoRows = 2
)

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNoRows):
		return exitNoRows
	default:
		return exitFailed
	}
}

package project

import "fmt"

// Progress receives status messages from long-running scans.
type Progress interface {
	// Report delivers a human-readable status message.
	Report(message string)
	// Fail signals that the operation being reported on has failed.
	Fail(err error)
}

// ProgressFunc adapts a message callback to Progress; failures are reported
// as messages.
type ProgressFunc func(message string)

func (f ProgressFunc) Report(message string) { f(message) }

func (f ProgressFunc) Fail(err error) { f("Error: " + err.Error()) }

func report(p Progress, format string, args ...any) {
	if p == nil {
		return
	}
	p.Report(fmt.Sprintf(format, args...))
}

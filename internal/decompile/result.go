package decompile

import "time"

// Status is the terminal state of a decompilation request.
type Status int

const (
	// StatusSucceeded means the source file was written.
	StatusSucceeded Status = iota + 1
	// StatusFailed means the attempt was made and failed.
	StatusFailed
	// StatusSkipped means an exclusion rule matched; nothing was attempted.
	StatusSkipped
	// StatusCancelled means validation was cancelled or the caller gave up.
	StatusCancelled
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProcessOutcome captures what the decompiler process did.
type ProcessOutcome struct {
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	// Stdout and Stderr hold the tails of each stream.
	Stdout string
	Stderr string
	// OutputBytes is the number of stdout bytes written to the output file.
	OutputBytes int64
	Duration    time.Duration
	// Killed is set when the process was killed on timeout or cancellation.
	Killed bool
}

// Result is the immutable outcome of Orchestrator.Decompile. Its single
// Status means a result is never both successful and cancelled.
type Result struct {
	Target    Target
	Status    Status
	RequestID string
	// OutputFile is set when Status is StatusSucceeded.
	OutputFile string
	// Code is the console code describing a failure, skip or cancellation.
	Code string
	Err  error
	// Outcome is nil when no process was started.
	Outcome  *ProcessOutcome
	Duration time.Duration
}

// Succeeded reports whether the source file was written.
func (r Result) Succeeded() bool { return r.Status == StatusSucceeded }

// Failed reports whether the attempt failed.
func (r Result) Failed() bool { return r.Status == StatusFailed }

// Skipped reports whether the target was excluded.
func (r Result) Skipped() bool { return r.Status == StatusSkipped }

// Cancelled reports whether the request was cancelled.
func (r Result) Cancelled() bool { return r.Status == StatusCancelled }

// Summary counts results by status.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Total returns the number of results counted.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped + s.Cancelled
}

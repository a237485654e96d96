package build

import "time"

// Stage status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// BuildResult captures the outcome of a full dispatch run.
type BuildResult struct {
	Selector string
	Steps    []StepResult
	Duration time.Duration
}

// Failed reports whether any stage failed.
func (r *BuildResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// StepResult captures the outcome of a single pipeline stage.
type StepResult struct {
	Name      string
	Status    string // "success", "failed", "skipped"
	Images    []string
	Artifacts []Artifact
	Duration  time.Duration
	Error     error
}

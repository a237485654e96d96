package build

import (
	"errors"
	"os/exec"
)

// ExitCode maps an error chain to the process exit status. Subprocess
// failures propagate the tool's own exit code so CI pipelines see the
// same status they would from running docker by hand; every other
// failure is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		if code := exit.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}

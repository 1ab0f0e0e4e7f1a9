package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary mastering runs shell out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status is the availability verdict for one requirement. Detail is empty
// when the binary resolves and explains the failure when it does not.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Check resolves a single requirement through PATH lookup.
func Check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}

	switch {
	case req.Command == "":
		status.Detail = "command not configured"
	default:
		if _, err := exec.LookPath(req.Command); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		} else {
			status.Available = true
		}
	}
	return status
}

// CheckBinaries resolves every requirement, one Status per Requirement in
// the same order.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		statuses[i] = Check(req)
	}
	return statuses
}

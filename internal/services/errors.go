package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSetup marks a failed execution unit readiness handshake. Fatal to
	// pool initialization.
	ErrSetup = errors.New("setup error")
	// ErrEngine marks a failed engine invocation.
	ErrEngine = errors.New("engine error")
	// ErrPostcondition marks an invocation that reported success while the
	// expected artifact or measurement is absent or unparsable.
	ErrPostcondition = errors.New("postcondition error")
	// ErrCrash marks an execution unit that terminated outside the normal
	// response protocol while holding a job.
	ErrCrash = errors.New("unit crash")
	// ErrAssembly marks a concatenation that reported success while the
	// final artifact is missing.
	ErrAssembly = errors.New("assembly error")

	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTimeout       = errors.New("timeout")
)

// sentinels lists every marker Terminal recognizes.
var sentinels = []error{
	ErrSetup, ErrEngine, ErrPostcondition, ErrCrash, ErrAssembly,
	ErrConfiguration, ErrValidation, ErrTimeout,
}

// Wrap tags err with marker so callers can classify the failure through
// errors.Is, prefixing the message with whichever of stage, operation, and
// message are set. A nil marker falls back to ErrValidation.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrValidation
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, describe(stage, operation, message))
	}
	return fmt.Errorf("%w: %s: %w", marker, describe(stage, operation, message), err)
}

// Terminal reports whether the error carries one of this package's markers.
// Transport glue uses it to tell classified failures apart from raw I/O
// errors.
func Terminal(err error) bool {
	for _, marker := range sentinels {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func describe(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

package manager

import (
	"errors"
	"fmt"
)

// unsupportedModelError signals a model name outside the registry for 404 mapping.
type unsupportedModelError struct{ name string }

func (e unsupportedModelError) Error() string { return "model not supported: " + e.name }

// ErrUnsupportedModel constructs an unsupportedModelError.
func ErrUnsupportedModel(name string) error { return unsupportedModelError{name: name} }

// IsUnsupportedModel reports whether the error indicates an unknown model name.
func IsUnsupportedModel(err error) bool {
	var e unsupportedModelError
	return errors.As(err, &e)
}

// jobNotFoundError signals an unknown job id for 404 mapping.
type jobNotFoundError struct{ id string }

func (e jobNotFoundError) Error() string { return "job not found: " + e.id }

// ErrJobNotFound constructs a jobNotFoundError.
func ErrJobNotFound(id string) error { return jobNotFoundError{id: id} }

// IsJobNotFound reports whether the error indicates a missing job id.
func IsJobNotFound(err error) bool {
	var e jobNotFoundError
	return errors.As(err, &e)
}

// engineCrashError means the separation subprocess exited abnormally.
// The stderr tail is kept for logs and the event journal; the job record
// gets a short hint instead.
type engineCrashError struct {
	exitCode   int
	stderrTail string
}

func (e engineCrashError) Error() string {
	return fmt.Sprintf("separation engine crashed (exit status %d)", e.exitCode)
}

// ErrEngineCrash constructs an engineCrashError.
func ErrEngineCrash(exitCode int, stderrTail string) error {
	return engineCrashError{exitCode: exitCode, stderrTail: stderrTail}
}

// IsEngineCrash reports whether the error is an abnormal engine exit.
func IsEngineCrash(err error) bool {
	var e engineCrashError
	return errors.As(err, &e)
}

// CrashDetails extracts the exit code and stderr tail from an engine
// crash anywhere in err's chain.
func CrashDetails(err error) (exitCode int, stderrTail string, ok bool) {
	var e engineCrashError
	if !errors.As(err, &e) {
		return 0, "", false
	}
	return e.exitCode, e.stderrTail, true
}

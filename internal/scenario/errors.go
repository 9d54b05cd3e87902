package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrScenarioLoad matches every *ScenarioLoadError.
	ErrScenarioLoad = errors.New("scenario load failed")
	// ErrUnknownDisruptionKind matches every *UnknownDisruptionKindError.
	ErrUnknownDisruptionKind = errors.New("unknown disruption kind")
)

// ScenarioLoadError reports malformed or incomplete scenario input. It is
// fatal: the production loop never starts.
type ScenarioLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ScenarioLoadError) Error() string {
	msg := "scenario: load"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScenarioLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrScenarioLoad}
	}
	return []error{ErrScenarioLoad, e.Err}
}

// UnknownDisruptionKindError reports a disruption whose kind is outside the
// supported set.
type UnknownDisruptionKindError struct {
	Kind   string
	UnitID int
}

func (e *UnknownDisruptionKindError) Error() string {
	return fmt.Sprintf("unknown disruption kind %q at unit %d", e.Kind, e.UnitID)
}

func (e *UnknownDisruptionKindError) Unwrap() error {
	return ErrUnknownDisruptionKind
}

func loadError(reason string, err error) *ScenarioLoadError {
	return &ScenarioLoadError{Reason: reason, Err: err}
}

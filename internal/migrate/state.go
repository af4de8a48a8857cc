package migrate

import (
	"errors"
	"fmt"
)

// State is the progress of one legacy task through a migration.
type State string

const (
	StateDiscovered         State = "discovered"
	StatePatternConverted   State = "pattern-converted"
	StateInstancesLinked    State = "instances-linked"
	StateInstancesGenerated State = "instances-generated"
	StateMigrated           State = "migrated"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateMigrated || s == StateFailed
}

// next is the forward transition out of each non-terminal state.
var next = map[State]State{
	StateDiscovered:         StatePatternConverted,
	StatePatternConverted:   StateInstancesLinked,
	StateInstancesLinked:    StateInstancesGenerated,
	StateInstancesGenerated: StateMigrated,
}

// StepError reports the step a legacy task failed in. Reached is the last
// state the task completed.
type StepError struct {
	TaskID  string
	Reached State
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed after %s: %v", e.Reached, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Step is the transition that failed.
func (e *StepError) Step() State { return next[e.Reached] }

// IsStepError reports whether err is a StepError.
// Uses errors.As to handle wrapped errors.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}

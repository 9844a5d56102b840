package checkout

import "fmt"

type Step string

const (
	StepLoad      Step = "load"
	StepPrice     Step = "price"
	StepAuthorize Step = "authorize"
	StepCommit    Step = "commit"
)

// Error reports the step a checkout attempt stopped at. Nothing past that step happened.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkout failed at %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stepError(step Step, err error) error {
	return &Error{Step: step, Err: err}
}

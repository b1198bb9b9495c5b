package onboarding

import (
	"errors"
	"fmt"
)

var ErrStepIncomplete = errors.New("current step is incomplete")

// Flow is one user's pass through the wizard
type Flow struct {
	Steps   []Step
	Payload *Payload
	current int
	done    bool
}

// NewFlow starts at the first step with an empty payload unless one is given
func NewFlow(steps []Step, payload *Payload) *Flow {
	if steps == nil {
		steps = DefaultSteps
	}
	if payload == nil {
		payload = &Payload{}
	}
	return &Flow{Steps: steps, Payload: payload}
}

// ResumeFlow places a flow on a previously saved step
func ResumeFlow(steps []Step, payload *Payload, stepName string) (*Flow, error) {
	f := NewFlow(steps, payload)
	if stepName == "" {
		return f, nil
	}
	idx := indexOf(f.Steps, stepName)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, stepName)
	}
	f.current = idx
	return f, nil
}

func (f *Flow) Current() Step { return f.Steps[f.current] }

func (f *Flow) Done() bool { return f.done }

// Set forwards to Payload.Set
func (f *Flow) Set(key string, value interface{}) error {
	return f.Payload.Set(key, value)
}

func (f *Flow) CanAdvance(meta UserMetadata) bool {
	return IsStepComplete(f.Current(), f.Payload, meta)
}

// Advance moves forward. The returned transition has Save set when the
// wizard is finished and the payload should be persisted. On error the flow
// is left untouched.
func (f *Flow) Advance(meta UserMetadata, branch string) (Transition, error) {
	payload := f.Payload
	if branch != "" && f.Current().Name == StepAvatarPathChoice {
		staged := *f.Payload
		if err := staged.Set(FieldAvatarPath, branch); err != nil {
			return Transition{}, err
		}
		payload = &staged
	}
	if !IsStepComplete(f.Current(), payload, meta) {
		return Transition{}, fmt.Errorf("%w: %s", ErrStepIncomplete, f.Current().Name)
	}
	t, err := Next(f.Steps, f.Current().Name, payload, branch)
	if err != nil {
		return Transition{}, err
	}
	*f.Payload = *payload
	if t.Save {
		f.done = true
		return t, nil
	}
	f.current = indexOf(f.Steps, t.Step)
	return t, nil
}

// Retreat moves back. Exit is set when there is no earlier step.
func (f *Flow) Retreat() (Transition, error) {
	t, err := Back(f.Steps, f.Current().Name, f.Payload)
	if err != nil {
		return Transition{}, err
	}
	if t.Step != "" {
		f.current = indexOf(f.Steps, t.Step)
		f.done = false
	}
	return t, nil
}

func (f *Flow) Progress() int {
	return ProgressPercentage(f.Steps, f.Current().Name, f.Payload)
}

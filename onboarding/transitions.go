package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStep      = errors.New("unknown onboarding step")
	ErrBranchUnresolved = errors.New("avatar path not chosen")
)

// Transition is the outcome of Next or Back. Exactly one of Step, Save
// and Exit is meaningful.
type Transition struct {
	Step string `json:"step,omitempty"`
	Save bool   `json:"save,omitempty"`
	Exit bool   `json:"exit,omitempty"`
}

// branchAny matches regardless of the avatar path
const branchAny = "*"

// edge is one row of a transition table. An empty To means save when moving
// forward and exit when moving back.
type edge struct {
	From   string
	Branch string
	To     string
}

var forwardEdges = []edge{
	{StepGender, branchAny, StepDigitalWardrobe},
	{StepDigitalWardrobe, branchAny, StepAvatarPathChoice},
	{StepAvatarPathChoice, AvatarPathCustom, StepStyleProfile},
	{StepAvatarPathChoice, AvatarPathPremade, StepSelectAvatar},
	{StepStyleProfile, branchAny, StepUserDetails},
	{StepSelectAvatar, branchAny, StepUserDetails},
	{StepUserDetails, branchAny, ""},
}

var backwardEdges = []edge{
	{StepGender, branchAny, ""},
	{StepDigitalWardrobe, branchAny, StepGender},
	{StepAvatarPathChoice, branchAny, StepDigitalWardrobe},
	{StepStyleProfile, branchAny, StepAvatarPathChoice},
	{StepSelectAvatar, AvatarPathCustom, StepStyleProfile},
	{StepSelectAvatar, AvatarPathPremade, StepAvatarPathChoice},
	{StepUserDetails, AvatarPathCustom, StepStyleProfile},
	{StepUserDetails, AvatarPathPremade, StepSelectAvatar},
}

// lookup finds the edge for from/branch. branched is true when from has
// branch-specific rows, even if none matched.
func lookup(edges []edge, from, branch string) (e edge, found, branched bool) {
	for _, candidate := range edges {
		if candidate.From != from {
			continue
		}
		if candidate.Branch == branchAny {
			return candidate, true, false
		}
		branched = true
		if candidate.Branch == branch {
			return candidate, true, true
		}
	}
	return edge{}, false, branched
}

// Next resolves the step after current. branch overrides payload.AvatarPath
// when non-empty.
func Next(steps []Step, current string, payload *Payload, branch string) (Transition, error) {
	idx := indexOf(steps, current)
	if idx < 0 {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStep, current)
	}
	if branch == "" && payload != nil {
		branch = payload.AvatarPath
	}

	e, found, branched := lookup(forwardEdges, current, branch)
	switch {
	case found && e.To == "":
		return Transition{Save: true}, nil
	case found && indexOf(steps, e.To) >= 0:
		return Transition{Step: e.To}, nil
	case branched:
		return Transition{}, fmt.Errorf("%w: leaving %s", ErrBranchUnresolved, current)
	}

	if idx == len(steps)-1 {
		return Transition{Save: true}, nil
	}
	return Transition{Step: steps[idx+1].Name}, nil
}

// Back resolves the step before current, or Exit on the first step
func Back(steps []Step, current string, payload *Payload) (Transition, error) {
	idx := indexOf(steps, current)
	if idx < 0 {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStep, current)
	}
	branch := ""
	if payload != nil {
		branch = payload.AvatarPath
	}

	e, found, branched := lookup(backwardEdges, current, branch)
	switch {
	case found && e.To == "":
		return Transition{Exit: true}, nil
	case found && indexOf(steps, e.To) >= 0:
		return Transition{Step: e.To}, nil
	case branched:
		return Transition{}, fmt.Errorf("%w: returning from %s", ErrBranchUnresolved, current)
	}

	if idx == 0 {
		return Transition{Exit: true}, nil
	}
	return Transition{Step: steps[idx-1].Name}, nil
}

package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedState(n int) *StyleProfileState {
	state := &StyleProfileState{ImageStatus: map[string]string{}}
	for i := 0; i < n; i++ {
		url := "https://cdn.example.com/photo" + string(rune('a'+i)) + ".jpg"
		state.ImageURLs = append(state.ImageURLs, url)
		state.ImageStatus[url] = ImageApproved
	}
	return state
}

func stepNamed(name string) Step {
	return DefaultSteps[indexOf(DefaultSteps, name)]
}

func TestIsStepComplete(t *testing.T) {
	payload := &Payload{}

	assert.True(t, IsStepComplete(stepNamed(StepDigitalWardrobe), payload, UserMetadata{}), "no required fields")
	assert.False(t, IsStepComplete(stepNamed(StepGender), payload, UserMetadata{}))

	require.NoError(t, payload.Set(FieldGender, "female"))
	assert.True(t, IsStepComplete(stepNamed(StepGender), payload, UserMetadata{}))

	details := stepNamed(StepUserDetails)
	require.NoError(t, payload.Set(FieldClothingSize, "M"))
	require.NoError(t, payload.Set(FieldShoeSize, "38"))
	require.NoError(t, payload.Set(FieldShoeUnit, "EU"))
	assert.False(t, IsStepComplete(details, payload, UserMetadata{}), "country still missing")
	require.NoError(t, payload.Set(FieldCountry, "India"))
	assert.True(t, IsStepComplete(details, payload, UserMetadata{}))

	require.NoError(t, payload.Set(FieldCountry, "   "))
	assert.False(t, IsStepComplete(details, payload, UserMetadata{}), "whitespace counts as empty")
}

func TestIsStepCompleteAvatarInProgress(t *testing.T) {
	style := stepNamed(StepStyleProfile)
	payload := &Payload{AvatarPath: AvatarPathCustom}

	assert.False(t, IsStepComplete(style, payload, UserMetadata{}))
	assert.True(t, IsStepComplete(style, payload, UserMetadata{AvatarStatus: AvatarStatusProcessing}))
	assert.True(t, IsStepComplete(style, payload, UserMetadata{AvatarStatus: AvatarStatusPending}))
	assert.False(t, IsStepComplete(style, payload, UserMetadata{AvatarStatus: AvatarStatusReady}))

	// the override only applies to the style profile step
	assert.False(t, IsStepComplete(stepNamed(StepSelectAvatar), payload, UserMetadata{AvatarStatus: AvatarStatusProcessing}))
}

func TestSetStyleProfileStateRequiresApprovedImages(t *testing.T) {
	payload := &Payload{}

	err := payload.Set(FieldStyleProfileState, approvedState(2))
	assert.ErrorIs(t, err, ErrStyleProfileImages)
	assert.Nil(t, payload.StyleProfileState)

	err = payload.Set(FieldStyleProfileState, approvedState(6))
	assert.ErrorIs(t, err, ErrStyleProfileImages)

	require.NoError(t, payload.Set(FieldStyleProfileState, approvedState(3)))
	assert.True(t, payload.Has(FieldStyleProfileState))

	require.NoError(t, payload.Set(FieldStyleProfileState, nil))
	assert.False(t, payload.Has(FieldStyleProfileState))
}

func TestSetRejectsBadInput(t *testing.T) {
	payload := &Payload{}
	assert.ErrorIs(t, payload.Set("favourite_colour", "red"), ErrUnknownField)
	assert.ErrorIs(t, payload.Set(FieldAvatarPath, "random"), ErrInvalidAvatarPath)
	assert.ErrorIs(t, payload.Set(FieldGender, 42), ErrInvalidFieldPayload)
}

func TestNextTable(t *testing.T) {
	cases := []struct {
		from   string
		branch string
		want   Transition
	}{
		{StepGender, "", Transition{Step: StepDigitalWardrobe}},
		{StepDigitalWardrobe, "", Transition{Step: StepAvatarPathChoice}},
		{StepAvatarPathChoice, AvatarPathCustom, Transition{Step: StepStyleProfile}},
		{StepAvatarPathChoice, AvatarPathPremade, Transition{Step: StepSelectAvatar}},
		{StepStyleProfile, AvatarPathCustom, Transition{Step: StepUserDetails}},
		{StepSelectAvatar, AvatarPathPremade, Transition{Step: StepUserDetails}},
		{StepUserDetails, AvatarPathPremade, Transition{Save: true}},
	}
	for _, tc := range cases {
		got, err := Next(DefaultSteps, tc.from, &Payload{}, tc.branch)
		require.NoError(t, err, tc.from)
		assert.Equal(t, tc.want, got, tc.from)
	}
}

func TestNextUsesPayloadBranch(t *testing.T) {
	got, err := Next(DefaultSteps, StepAvatarPathChoice, &Payload{AvatarPath: AvatarPathPremade}, "")
	require.NoError(t, err)
	assert.Equal(t, StepSelectAvatar, got.Step)
}

func TestNextUnresolvedBranch(t *testing.T) {
	_, err := Next(DefaultSteps, StepAvatarPathChoice, &Payload{}, "")
	assert.ErrorIs(t, err, ErrBranchUnresolved)

	_, err = Next(DefaultSteps, "nowhere", &Payload{}, "")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestNextFallsThroughToIndex(t *testing.T) {
	steps := []Step{{Name: "intro"}, {Name: "outro"}}

	got, err := Next(steps, "intro", nil, "")
	require.NoError(t, err)
	assert.Equal(t, Transition{Step: "outro"}, got)

	got, err = Next(steps, "outro", nil, "")
	require.NoError(t, err)
	assert.Equal(t, Transition{Save: true}, got)
}

func TestBackIsInverseOfNext(t *testing.T) {
	for _, path := range []string{AvatarPathCustom, AvatarPathPremade} {
		payload := &Payload{AvatarPath: path}
		current := StepGender
		for {
			fwd, err := Next(DefaultSteps, current, payload, "")
			require.NoError(t, err)
			if fwd.Save {
				break
			}
			back, err := Back(DefaultSteps, fwd.Step, payload)
			require.NoError(t, err)
			assert.Equal(t, current, back.Step, "%s path: back from %s", path, fwd.Step)
			current = fwd.Step
		}
		assert.Equal(t, StepUserDetails, current)
	}
}

func TestBackBranches(t *testing.T) {
	got, err := Back(DefaultSteps, StepSelectAvatar, &Payload{AvatarPath: AvatarPathCustom})
	require.NoError(t, err)
	assert.Equal(t, StepStyleProfile, got.Step)

	got, err = Back(DefaultSteps, StepSelectAvatar, &Payload{AvatarPath: AvatarPathPremade})
	require.NoError(t, err)
	assert.Equal(t, StepAvatarPathChoice, got.Step)

	got, err = Back(DefaultSteps, StepGender, &Payload{})
	require.NoError(t, err)
	assert.True(t, got.Exit)

	_, err = Back(DefaultSteps, StepUserDetails, &Payload{})
	assert.ErrorIs(t, err, ErrBranchUnresolved)
}

func TestProgressPercentage(t *testing.T) {
	premade := &Payload{AvatarPath: AvatarPathPremade}
	custom := &Payload{AvatarPath: AvatarPathCustom}

	assert.Equal(t, 100, ProgressPercentage(DefaultSteps, StepUserDetails, premade))
	assert.Equal(t, 20, ProgressPercentage(DefaultSteps, StepGender, premade))
	assert.Equal(t, 80, ProgressPercentage(DefaultSteps, StepSelectAvatar, premade))
	assert.Equal(t, 0, ProgressPercentage(DefaultSteps, StepStyleProfile, premade), "skipped step is not counted")

	assert.Equal(t, 67, ProgressPercentage(DefaultSteps, StepStyleProfile, custom))
	assert.Equal(t, 100, ProgressPercentage(DefaultSteps, StepUserDetails, custom))
}

func TestFlowEndToEnd(t *testing.T) {
	flow := NewFlow(nil, nil)
	meta := UserMetadata{}

	_, err := flow.Advance(meta, "")
	assert.ErrorIs(t, err, ErrStepIncomplete)

	require.NoError(t, flow.Set(FieldGender, "female"))
	tr, err := flow.Advance(meta, "")
	require.NoError(t, err)
	assert.Equal(t, StepDigitalWardrobe, tr.Step)

	tr, err = flow.Advance(meta, "")
	require.NoError(t, err)
	assert.Equal(t, StepAvatarPathChoice, tr.Step)

	tr, err = flow.Advance(meta, AvatarPathCustom)
	require.NoError(t, err)
	assert.Equal(t, StepStyleProfile, tr.Step)
	assert.Equal(t, AvatarPathCustom, flow.Payload.AvatarPath)

	assert.False(t, flow.CanAdvance(meta))
	require.NoError(t, flow.Set(FieldStyleProfileState, approvedState(3)))
	assert.True(t, flow.CanAdvance(meta))

	tr, err = flow.Advance(meta, "")
	require.NoError(t, err)
	assert.Equal(t, StepUserDetails, tr.Step)

	for k, v := range map[string]string{
		FieldClothingSize: "S",
		FieldShoeSize:     "37",
		FieldShoeUnit:     "EU",
		FieldCountry:      "France",
	} {
		require.NoError(t, flow.Set(k, v))
	}
	tr, err = flow.Advance(meta, "")
	require.NoError(t, err)
	assert.True(t, tr.Save)
	assert.True(t, flow.Done())
}

func TestFlowAdvanceRejectedLeavesPayloadAlone(t *testing.T) {
	flow, err := ResumeFlow(nil, &Payload{Gender: "male"}, StepAvatarPathChoice)
	require.NoError(t, err)

	_, err = flow.Advance(UserMetadata{}, "sideways")
	assert.ErrorIs(t, err, ErrInvalidAvatarPath)
	assert.Empty(t, flow.Payload.AvatarPath)
	assert.Equal(t, StepAvatarPathChoice, flow.Current().Name)
}

func TestFlowRetreat(t *testing.T) {
	flow, err := ResumeFlow(nil, &Payload{AvatarPath: AvatarPathPremade}, StepUserDetails)
	require.NoError(t, err)

	tr, err := flow.Retreat()
	require.NoError(t, err)
	assert.Equal(t, StepSelectAvatar, tr.Step)
	assert.Equal(t, StepSelectAvatar, flow.Current().Name)
	assert.Equal(t, 80, flow.Progress())
}

func TestEstimateAvatarProgress(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, EstimateAvatarProgress(time.Time{}, start))
	assert.Equal(t, 0, EstimateAvatarProgress(start, start))
	assert.Equal(t, 50, EstimateAvatarProgress(start, start.Add(150*time.Second)))
	assert.Equal(t, 99, EstimateAvatarProgress(start, start.Add(10*time.Minute)))
}

func TestTrackAvatarProgressStopsAtCap(t *testing.T) {
	started := time.Now().Add(-AvatarEstimateWindow)
	var seen []int
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	TrackAvatarProgress(ctx, started, 5*time.Millisecond, func(pct int) {
		seen = append(seen, pct)
	})
	require.NotEmpty(t, seen)
	assert.Equal(t, 99, seen[len(seen)-1])
}

package onboarding

import "time"

// Step names
const (
	StepGender           = "gender"
	StepDigitalWardrobe  = "digitalWardrobe"
	StepAvatarPathChoice = "avatarPathChoice"
	StepStyleProfile     = "styleProfile"
	StepSelectAvatar     = "select-avatar"
	StepUserDetails      = "user-details"
)

// Step is one screen of the onboarding wizard
type Step struct {
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle,omitempty"`
	Name           string   `json:"name"`
	Component      string   `json:"component"`
	RequiredFields []string `json:"required_fields"`
}

// DefaultSteps is the wizard in display order
var DefaultSteps = []Step{
	{
		Title:          "Tell us about you",
		Subtitle:       "We use this to tailor sizes and styles",
		Name:           StepGender,
		Component:      "GenderSelection",
		RequiredFields: []string{FieldGender},
	},
	{
		Title:     "Connect your digital wardrobe",
		Subtitle:  "Optional. Lets us learn from what you already own",
		Name:      StepDigitalWardrobe,
		Component: "DigitalWardrobe",
	},
	{
		Title:          "Create your avatar",
		Subtitle:       "Build one from your photos or pick a ready-made look",
		Name:           StepAvatarPathChoice,
		Component:      "AvatarPathChoice",
		RequiredFields: []string{FieldAvatarPath},
	},
	{
		Title:          "Your style profile",
		Subtitle:       "Upload 3 to 5 photos of yourself",
		Name:           StepStyleProfile,
		Component:      "StyleProfile",
		RequiredFields: []string{FieldStyleProfileState},
	},
	{
		Title:          "Pick an avatar",
		Name:           StepSelectAvatar,
		Component:      "SelectAvatar",
		RequiredFields: []string{FieldPrefAvatarURL},
	},
	{
		Title:          "A few more details",
		Subtitle:       "Sizes and where you shop from",
		Name:           StepUserDetails,
		Component:      "UserDetails",
		RequiredFields: []string{FieldClothingSize, FieldShoeSize, FieldShoeUnit, FieldCountry},
	},
}

// Avatar generation statuses carried in identity-provider metadata
const (
	AvatarStatusPending    = "pending"
	AvatarStatusProcessing = "processing"
	AvatarStatusReady      = "ready"
	AvatarStatusFailed     = "failed"
)

// UserMetadata is the identity provider's metadata blob for the signed-in user
type UserMetadata struct {
	AvatarStatus    string    `bson:"avatar_status,omitempty" json:"avatar_status,omitempty"`
	AvatarStartedAt time.Time `bson:"avatar_started_at,omitempty" json:"avatar_started_at,omitempty"`
	AvatarURL       string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}

// AvatarInProgress reports a generation job that started and has not finished
func (m UserMetadata) AvatarInProgress() bool {
	return m.AvatarStatus == AvatarStatusPending || m.AvatarStatus == AvatarStatusProcessing
}

// IsStepComplete reports whether the user may leave step. The style profile
// step is also complete while a remote avatar job is running, so the user
// can move on without waiting for it.
func IsStepComplete(step Step, payload *Payload, meta UserMetadata) bool {
	if len(step.RequiredFields) == 0 {
		return true
	}
	if step.Name == StepStyleProfile && meta.AvatarInProgress() {
		return true
	}
	if payload == nil {
		return false
	}
	for _, field := range step.RequiredFields {
		if !payload.Has(field) {
			return false
		}
	}
	return true
}

func indexOf(steps []Step, name string) int {
	for i, s := range steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

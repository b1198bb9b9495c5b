package onboarding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Avatar creation paths chosen on the avatarPathChoice step
const (
	AvatarPathCustom  = "custom"
	AvatarPathPremade = "premade"
)

// Payload field names, as used in step requirements and Set
const (
	FieldGender            = "gender"
	FieldClothingSize      = "clothing_size"
	FieldShoeSize          = "shoe_size"
	FieldShoeUnit          = "shoe_unit"
	FieldCountry           = "country"
	FieldPrefAvatarURL     = "pref_avatar_url"
	FieldAvatarPath        = "avatarPath"
	FieldStyleProfileState = "styleProfileState"
)

const (
	MinStyleImages = 3
	MaxStyleImages = 5
)

var (
	ErrUnknownField        = errors.New("unknown onboarding field")
	ErrInvalidAvatarPath   = errors.New("avatar path must be custom or premade")
	ErrStyleProfileImages  = fmt.Errorf("style profile needs %d-%d approved images", MinStyleImages, MaxStyleImages)
	ErrInvalidFieldPayload = errors.New("invalid field value")
)

// Image approval states reported by the photo review
const (
	ImageApproved = "approved"
	ImageRejected = "rejected"
	ImagePending  = "pending"
)

// StyleProfileState tracks the photos uploaded for a custom avatar
type StyleProfileState struct {
	ImageURLs        []string          `bson:"image_urls" json:"image_urls"`
	ImageStatus      map[string]string `bson:"image_status" json:"image_status"`
	RejectionReasons map[string]string `bson:"rejection_reasons,omitempty" json:"rejection_reasons,omitempty"`
	AvatarProgress   int               `bson:"avatar_progress" json:"avatar_progress"`
	AvatarStatus     string            `bson:"avatar_status" json:"avatar_status"`
	Processing       bool              `bson:"processing" json:"processing"`
}

// ApprovedURLs returns the uploaded URLs that passed review, in upload order
func (s *StyleProfileState) ApprovedURLs() []string {
	if s == nil {
		return nil
	}
	var approved []string
	for _, url := range s.ImageURLs {
		if s.ImageStatus[url] == ImageApproved {
			approved = append(approved, url)
		}
	}
	return approved
}

// Payload is the data collected across the onboarding wizard
type Payload struct {
	Gender            string             `bson:"gender" json:"gender"`
	ClothingSize      string             `bson:"clothing_size" json:"clothing_size"`
	ShoeSize          string             `bson:"shoe_size" json:"shoe_size"`
	ShoeUnit          string             `bson:"shoe_unit" json:"shoe_unit"`
	Country           string             `bson:"country" json:"country"`
	PrefAvatarURL     string             `bson:"pref_avatar_url" json:"pref_avatar_url"`
	AvatarPath        string             `bson:"avatar_path" json:"avatarPath"`
	StyleProfileState *StyleProfileState `bson:"style_profile_state,omitempty" json:"styleProfileState"`
}

// Set assigns a single field. value is either a string or, for
// styleProfileState, a *StyleProfileState / raw JSON / nil.
func (p *Payload) Set(key string, value interface{}) error {
	if key == FieldStyleProfileState {
		state, err := toStyleProfileState(value)
		if err != nil {
			return err
		}
		if state != nil {
			n := len(state.ApprovedURLs())
			if n < MinStyleImages || n > MaxStyleImages {
				return ErrStyleProfileImages
			}
		}
		p.StyleProfileState = state
		return nil
	}

	s, ok := value.(string)
	if !ok && value != nil {
		return fmt.Errorf("%w: %s expects a string", ErrInvalidFieldPayload, key)
	}
	s = strings.TrimSpace(s)

	switch key {
	case FieldGender:
		p.Gender = s
	case FieldClothingSize:
		p.ClothingSize = s
	case FieldShoeSize:
		p.ShoeSize = s
	case FieldShoeUnit:
		p.ShoeUnit = s
	case FieldCountry:
		p.Country = s
	case FieldPrefAvatarURL:
		p.PrefAvatarURL = s
	case FieldAvatarPath:
		if s != "" && s != AvatarPathCustom && s != AvatarPathPremade {
			return ErrInvalidAvatarPath
		}
		p.AvatarPath = s
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	return nil
}

// Has reports whether the named field holds a non-empty value
func (p *Payload) Has(key string) bool {
	switch key {
	case FieldGender:
		return p.Gender != ""
	case FieldClothingSize:
		return p.ClothingSize != ""
	case FieldShoeSize:
		return p.ShoeSize != ""
	case FieldShoeUnit:
		return p.ShoeUnit != ""
	case FieldCountry:
		return p.Country != ""
	case FieldPrefAvatarURL:
		return p.PrefAvatarURL != ""
	case FieldAvatarPath:
		return p.AvatarPath != ""
	case FieldStyleProfileState:
		return p.StyleProfileState != nil
	}
	return false
}

func toStyleProfileState(value interface{}) (*StyleProfileState, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *StyleProfileState:
		return v, nil
	case StyleProfileState:
		return &v, nil
	case json.RawMessage:
		if len(v) == 0 || string(v) == "null" {
			return nil, nil
		}
		var state StyleProfileState
		if err := json.Unmarshal(v, &state); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFieldPayload, err)
		}
		return &state, nil
	}
	return nil, fmt.Errorf("%w: styleProfileState has type %T", ErrInvalidFieldPayload, value)
}

package models

import (
	"time"

	"github.com/raushankrgupta/style-assistant/onboarding"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user
type User struct {
	ID        primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	Name      string                  `bson:"name" json:"name"`
	Email     string                  `bson:"email" json:"email"`
	Password  string                  `bson:"password" json:"-"`    // Password is not returned in JSON
	Status    string                  `bson:"status" json:"status"` // pending, verified, active
	OTP       string                  `bson:"otp" json:"-"`
	GoogleID  string                  `bson:"google_id,omitempty" json:"-"`
	Metadata  onboarding.UserMetadata `bson:"metadata" json:"metadata"`
	Onboarded bool                    `bson:"onboarded" json:"onboarded"`
	CreatedAt time.Time               `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time               `bson:"updated_at" json:"updated_at"`
}

// User statuses
const (
	UserStatusPending  = "pending"
	UserStatusVerified = "verified"
	UserStatusActive   = "active"
)

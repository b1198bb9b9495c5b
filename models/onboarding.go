package models

import (
	"time"

	"github.com/raushankrgupta/style-assistant/onboarding"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OnboardingRecord is a user's saved wizard state
type OnboardingRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Payload     onboarding.Payload `bson:"payload" json:"payload"`
	CurrentStep string             `bson:"current_step" json:"current_step"`
	Completed   bool               `bson:"completed" json:"completed"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// DigitalWardrobe records consent to scan an inbox for clothing purchases
type DigitalWardrobe struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

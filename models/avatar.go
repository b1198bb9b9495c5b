package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvatarJob tracks one personalized avatar generation
type AvatarJob struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	SourceImages []string           `bson:"source_images" json:"source_images"`
	ResultKey    string             `bson:"result_key,omitempty" json:"result_url,omitempty"` // object key, presigned on the way out
	Status       string             `bson:"status" json:"status"`                             // processing, ready, failed
	Error        string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	CompletedAt  *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reactions a user can leave on a product card
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// ProductReaction is a like/dislike left on a product card
type ProductReaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	ProductID string             `bson:"product_id" json:"product_id"`
	Reaction  string             `bson:"reaction" json:"reaction"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

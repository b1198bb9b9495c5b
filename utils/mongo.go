package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection            = "users"
	OnboardingCollection       = "onboarding"
	WardrobeCollection         = "digital_wardrobes"
	AvatarJobsCollection       = "avatar_jobs"
	ShoppingListCollection     = "shopping_list"
	ProductReactionsCollection = "product_reactions"
)

// ConnectMongo opens and pings a MongoDB client
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	Log.Info("Connected to MongoDB!")
	return client, nil
}

// ConnectRedis opens and pings a Redis client. An empty addr returns nil so
// callers can fall back to in-process state.
func ConnectRedis(addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	Log.Infow("Connected to Redis", "addr", addr)
	return client, nil
}

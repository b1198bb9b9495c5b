package api

import (
	"context"
	"errors"
	"time"

	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by stores when no document matches
var ErrNotFound = errors.New("not found")

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, set map[string]interface{}) error
}

// OnboardingStore persists wizard progress and wardrobe consents
type OnboardingStore interface {
	Load(ctx context.Context, userID string) (*models.OnboardingRecord, error)
	Save(ctx context.Context, record *models.OnboardingRecord) error
	SaveWardrobe(ctx context.Context, w *models.DigitalWardrobe) error
	SaveAvatarJob(ctx context.Context, job *models.AvatarJob) error
}

// ShoppingStore persists the wishlist and product reactions
type ShoppingStore interface {
	AddItem(ctx context.Context, item *models.ShoppingListItem) error
	ListItems(ctx context.Context, userID string, page, limit int) ([]models.ShoppingListItem, int64, error)
	AddReaction(ctx context.Context, reaction *models.ProductReaction) error
}

// MongoStore implements every store on one database
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{DB: client.Database(dbName)}
}

func (m *MongoStore) users() *mongo.Collection { return m.DB.Collection(utils.UsersCollection) }

func (m *MongoStore) Create(ctx context.Context, user *models.User) error {
	res, err := m.users().InsertOne(ctx, user)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return nil
}

func (m *MongoStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoStore) ByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.findUser(ctx, bson.M{"_id": oid})
}

func (m *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.users().FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *MongoStore) Update(ctx context.Context, id string, set map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	fields := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		fields[k] = v
	}
	res, err := m.users().UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Load(ctx context.Context, userID string) (*models.OnboardingRecord, error) {
	var rec models.OnboardingRecord
	err := m.DB.Collection(utils.OnboardingCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *MongoStore) Save(ctx context.Context, rec *models.OnboardingRecord) error {
	rec.UpdatedAt = time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	_, err := m.DB.Collection(utils.OnboardingCollection).UpdateOne(ctx,
		bson.M{"user_id": rec.UserID},
		bson.M{"$set": bson.M{
			"payload":      rec.Payload,
			"current_step": rec.CurrentStep,
			"completed":    rec.Completed,
			"updated_at":   rec.UpdatedAt,
		}, "$setOnInsert": bson.M{"created_at": rec.CreatedAt}},
		options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) SaveWardrobe(ctx context.Context, w *models.DigitalWardrobe) error {
	_, err := m.DB.Collection(utils.WardrobeCollection).UpdateOne(ctx,
		bson.M{"user_id": w.UserID},
		bson.M{"$set": bson.M{"email": w.Email}, "$setOnInsert": bson.M{"created_at": w.CreatedAt}},
		options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) SaveAvatarJob(ctx context.Context, job *models.AvatarJob) error {
	collection := m.DB.Collection(utils.AvatarJobsCollection)
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": job.ID}, job, options.Replace().SetUpsert(true))
	return err
}

func (m *MongoStore) AddItem(ctx context.Context, item *models.ShoppingListItem) error {
	_, err := m.DB.Collection(utils.ShoppingListCollection).UpdateOne(ctx,
		bson.M{"user_id": item.UserID, "product_id": item.ProductID},
		bson.M{"$set": bson.M{
			"brand":     item.Brand,
			"name":      item.Name,
			"price":     item.Price,
			"image_url": item.ImageURL,
			"buy_url":   item.BuyURL,
			"source":    item.Source,
		}, "$setOnInsert": bson.M{"created_at": item.CreatedAt}},
		options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) ListItems(ctx context.Context, userID string, page, limit int) ([]models.ShoppingListItem, int64, error) {
	collection := m.DB.Collection(utils.ShoppingListCollection)
	filter := bson.M{"user_id": userID}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}}) // latest first
	findOptions.SetSkip(int64((page - 1) * limit))
	findOptions.SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []models.ShoppingListItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (m *MongoStore) AddReaction(ctx context.Context, reaction *models.ProductReaction) error {
	_, err := m.DB.Collection(utils.ProductReactionsCollection).UpdateOne(ctx,
		bson.M{"user_id": reaction.UserID, "product_id": reaction.ProductID},
		bson.M{"$set": bson.M{
			"reaction":   reaction.Reaction,
			"comment":    reaction.Comment,
			"created_at": reaction.CreatedAt,
		}},
		options.Update().SetUpsert(true))
	return err
}

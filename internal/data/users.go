// Package data provides DB models and stores.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"time"    // Timestamps

	"github.com/PaulBabatuyi/wasteConnect/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"          // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo"         // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options" // Find options
)

// UsersStore performs user DB operations.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document with an already-hashed password.
func (u *UsersStore) CreateUser(ctx context.Context, name, email, hashedPassword, role string) (*User, error) {
	now := time.Now()
	user := &User{
		Name:      name,
		Email:     normalize.Email(email),
		Password:  hashedPassword,
		Role:      role,
		Skills:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		// Unique index on email rejects a second registration
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User

	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by hex ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(normalize.ID(id))
	if err != nil {
		return nil, ErrNotFound
	}

	// Lookup by primary key
	var user User
	if err := u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsersExcept returns every user other than excludeID, sorted by name,
// without password hashes.
func (u *UsersStore) ListUsersExcept(ctx context.Context, excludeID string) ([]*UserSummary, error) {
	// Exclude the caller when the id is valid
	filter := bson.M{}
	if oid, err := bson.ObjectIDFromHex(normalize.ID(excludeID)); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}

	// Sort by name and never return password hashes
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetProjection(bson.M{
			"name": 1, "email": 1, "role": 1, "bio": 1,
			"location": 1, "skills": 1, "avatar": 1,
		})

	cursor, err := u.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	// Decode all results
	users := []*UserSummary{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

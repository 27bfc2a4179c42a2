// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"           // Index key documents
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// Collection names. The plural forms match documents written by the
// pickup, recycling and volunteer services that share this database.
const (
	UsersCollectionName      = "users"
	MessagesCollectionName   = "messages"
	PickupsCollectionName    = "pickups"
	RecyclingsCollectionName = "recyclings"
	VolunteersCollectionName = "volunteers"
)

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db is the application database; collections are accessed through it
	db *mongo.Database
}

// New connects to MongoDB, verifies the connection and returns a Client
// bound to the named database.
func New(ctx context.Context, mongoURI, database string) (*Client, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// If ping doesn't complete in 5 seconds, fail
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection(UsersCollectionName)
}

// MessagesCollection returns the messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection(MessagesCollectionName)
}

// PickupsCollection returns the pickups collection.
func (c *Client) PickupsCollection() *mongo.Collection {
	return c.db.Collection(PickupsCollectionName)
}

// RecyclingsCollection returns the recycling entries collection.
func (c *Client) RecyclingsCollection() *mongo.Collection {
	return c.db.Collection(RecyclingsCollectionName)
}

// VolunteersCollection returns the volunteer hours collection.
func (c *Client) VolunteersCollection() *mongo.Collection {
	return c.db.Collection(VolunteersCollectionName)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes the API queries rely on.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS =====
	// Unique email backs signup duplicate detection and login lookups
	usersIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.UsersCollection().Indexes().CreateOne(ctx, usersIndexModel); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	// ===== MESSAGES =====
	messageIndexes := []mongo.IndexModel{
		{
			// Conversation history in one direction, newest first; mark-read
			// filters on the same prefix
			Keys: bson.D{
				{Key: "sender_id", Value: 1},
				{Key: "receiver_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			// Conversation listing scans by receiver too
			Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
	}
	if _, err := c.MessagesCollection().Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// ===== DASHBOARD SOURCES =====
	// Every dashboard aggregation is a date-range match
	if _, err := c.PickupsCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "pickupDate", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create pickups index: %w", err)
	}
	if _, err := c.PickupsCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pickupDate", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create pickups index: %w", err)
	}
	if _, err := c.RecyclingsCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create recyclings index: %w", err)
	}
	if _, err := c.VolunteersCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create volunteers index: %w", err)
	}

	return nil
}

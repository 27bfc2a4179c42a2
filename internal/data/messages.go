package data

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/wasteConnect/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is reference to "messages" collection in MongoDB
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// newestFirst orders by timestamp and breaks ties with _id, which grows
// with insertion order, so equal timestamps still have a total order.
var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

// SaveMessage inserts a message document and returns the saved record.
func (m *MessagesStore) SaveMessage(ctx context.Context, senderID, receiverID, content string, sentAt time.Time) (*Message, error) {
	// Build message document; read flag starts false
	msg := &Message{
		SenderID:   normalize.ID(senderID),
		ReceiverID: normalize.ID(receiverID),
		Content:    content,
		Timestamp:  sentAt,
		IsRead:     false,
		CreatedAt:  sentAt,
		UpdatedAt:  sentAt,
	}

	// Insert into MongoDB
	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}

	// Extract MongoDB's auto-generated _id and populate in struct
	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// GetConversation returns the most recent limit messages exchanged between
// two users in either direction, ordered oldest→newest. When more than limit
// messages exist the oldest ones are dropped.
func (m *MessagesStore) GetConversation(ctx context.Context, user1, user2 string, limit int64) ([]*Message, error) {
	// Newest first so the limit keeps the latest messages
	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(limit)

	u1 := normalize.ID(user1)
	u2 := normalize.ID(user2)

	// Match messages in both directions between the two users
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": u1, "receiver_id": u2},
			bson.M{"sender_id": u2, "receiver_id": u1},
		},
	}

	// Execute query
	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	// Decode all results
	messages := []*Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// Reverse into display order: oldest message first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ListUserMessages returns every message the user sent or received, newest first.
func (m *MessagesStore) ListUserMessages(ctx context.Context, userID string) ([]*Message, error) {
	userID = normalize.ID(userID)

	// User is either side of the message
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		},
	}

	// Newest first; the conversation list keeps the first message per counterpart
	cursor, err := m.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []*Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flags every unread message sent from senderID to receiverID as
// read and returns how many documents changed. The reverse direction is
// left alone.
func (m *MessagesStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	// Only unread messages in the sender -> receiver direction
	filter := bson.M{
		"sender_id":   normalize.ID(senderID),
		"receiver_id": normalize.ID(receiverID),
		"isRead":      false,
	}
	update := bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}}

	// Already-read messages are not matched, so repeating this is a no-op
	result, err := m.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteMessage removes a message by its hex id. A malformed id cannot
// address any document and is reported as ErrNotFound.
func (m *MessagesStore) DeleteMessage(ctx context.Context, id string) error {
	// Parse hex id; anything else cannot exist
	oid, err := bson.ObjectIDFromHex(normalize.ID(id))
	if err != nil {
		return ErrNotFound
	}

	// Hard delete
	result, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

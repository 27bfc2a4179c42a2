package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to the users collection.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Password  string        `bson:"password" json:"-"`
	Role      string        `bson:"role" json:"role"`
	Bio       string        `bson:"bio,omitempty" json:"bio,omitempty"`
	Location  string        `bson:"location,omitempty" json:"location,omitempty"`
	Skills    []string      `bson:"skills" json:"skills"`
	Avatar    string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Roles accepted at signup.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleVolunteer = "volunteer"
)

// UserSummary is the public projection listed as messaging counterparts.
type UserSummary struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	Name     string        `bson:"name" json:"name"`
	Email    string        `bson:"email" json:"email"`
	Role     string        `bson:"role" json:"role"`
	Bio      string        `bson:"bio,omitempty" json:"bio,omitempty"`
	Location string        `bson:"location,omitempty" json:"location,omitempty"`
	Skills   []string      `bson:"skills,omitempty" json:"skills,omitempty"`
	Avatar   string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Message maps to the messages collection. Only IsRead changes after insert.
type Message struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID   string        `bson:"sender_id" json:"sender_id"`
	ReceiverID string        `bson:"receiver_id" json:"receiver_id"`
	Content    string        `bson:"content" json:"content"`
	Timestamp  time.Time     `bson:"timestamp" json:"timestamp"`
	IsRead     bool          `bson:"isRead" json:"isRead"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Conversation is derived per request: the latest message exchanged with
// one counterpart. It is never stored.
type Conversation struct {
	CounterpartID string   `json:"counterpart_id"`
	LastMessage   *Message `json:"last_message"`
}

// Pickup statuses.
const (
	PickupScheduled = "Scheduled"
	PickupCompleted = "Completed"
	PickupCancelled = "Cancelled"
)

// Pickup maps to the pickups collection, written by the scheduling service.
type Pickup struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Address    string        `bson:"address" json:"address"`
	City       string        `bson:"city,omitempty" json:"city,omitempty"`
	PickupDate time.Time     `bson:"pickupDate" json:"pickupDate"`
	Time       string        `bson:"time,omitempty" json:"time,omitempty"`
	Status     string        `bson:"status" json:"status"`
	WasteTypes []string      `bson:"wasteTypes,omitempty" json:"wasteTypes,omitempty"`
}

// UpcomingPickup is the dashboard projection of a scheduled pickup.
type UpcomingPickup struct {
	Address    string    `bson:"address" json:"address"`
	PickupDate time.Time `bson:"pickupDate" json:"pickupDate"`
	Time       string    `bson:"time" json:"time"`
}

// RecyclingEntry maps to the recyclings collection.
type RecyclingEntry struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	MaterialType string        `bson:"materialType" json:"materialType"`
	Quantity     float64       `bson:"quantity" json:"quantity"`
	CO2SavedKg   float64       `bson:"co2SavedKg" json:"co2SavedKg"`
	Date         time.Time     `bson:"date" json:"date"`
}

// VolunteerEntry maps to the volunteers collection.
type VolunteerEntry struct {
	ID     bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID bson.ObjectID `bson:"userId" json:"userId"`
	Hours  float64       `bson:"hours" json:"hours"`
	Date   time.Time     `bson:"date" json:"date"`
}

package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MetricsStore runs the read-only aggregations behind the dashboard over
// collections owned by the pickup, recycling and volunteer services.
type MetricsStore struct {
	pickups    *mongo.Collection
	recyclings *mongo.Collection
	volunteers *mongo.Collection
}

// NewMetricsStore returns a MetricsStore over the three source collections.
func NewMetricsStore(pickups, recyclings, volunteers *mongo.Collection) *MetricsStore {
	return &MetricsStore{pickups: pickups, recyclings: recyclings, volunteers: volunteers}
}

// Summable recycling fields.
const (
	RecyclingQuantity = "quantity"
	RecyclingCO2      = "co2SavedKg"
)

// halfOpen matches from <= field < to.
func halfOpen(from, to time.Time) bson.M {
	return bson.M{"$gte": from, "$lt": to}
}

// CountPickups counts pickups whose pickupDate falls in [from, to).
func (s *MetricsStore) CountPickups(ctx context.Context, from, to time.Time) (int64, error) {
	return s.pickups.CountDocuments(ctx, bson.M{"pickupDate": halfOpen(from, to)})
}

// SumRecycling sums one numeric recycling field over entries dated in [from, to).
func (s *MetricsStore) SumRecycling(ctx context.Context, field string, from, to time.Time) (float64, error) {
	return sumField(ctx, s.recyclings, field, from, to)
}

// SumVolunteerHours sums volunteer hours dated in [from, to).
func (s *MetricsStore) SumVolunteerHours(ctx context.Context, from, to time.Time) (float64, error) {
	return sumField(ctx, s.volunteers, "hours", from, to)
}

// sumField runs $match on date then a single $group with $sum. An empty
// match yields no group document, which is a legitimate zero.
func sumField(ctx context.Context, coll *mongo.Collection, field string, from, to time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "date", Value: halfOpen(from, to)}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$" + field}}},
		}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// UpcomingPickups returns up to limit Scheduled pickups with pickupDate in
// [from, to], soonest first.
func (s *MetricsStore) UpcomingPickups(ctx context.Context, from, to time.Time, limit int64) ([]UpcomingPickup, error) {
	filter := bson.M{
		"pickupDate": bson.M{"$gte": from, "$lte": to},
		"status":     PickupScheduled,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "pickupDate", Value: 1}}).
		SetLimit(limit).
		SetProjection(bson.M{"_id": 0, "address": 1, "pickupDate": 1, "time": 1})

	cursor, err := s.pickups.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	pickups := []UpcomingPickup{}
	if err := cursor.All(ctx, &pickups); err != nil {
		return nil, err
	}
	return pickups, nil
}

// RecyclingBreakdown sums quantity per material type for entries in [from, to).
func (s *MetricsStore) RecyclingBreakdown(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "date", Value: halfOpen(from, to)}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$materialType"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$" + RecyclingQuantity}}},
		}}},
	}

	cursor, err := s.recyclings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Material string  `bson:"_id"`
		Total    float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64, len(results))
	for _, r := range results {
		breakdown[r.Material] = r.Total
	}
	return breakdown, nil
}

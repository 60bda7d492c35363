package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cloo-solutions/placesearch/internal/domain"
)

const MongoPlacesCollection = "places"

// ConnectMongo opens a client and checks the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// MongoPlaceRepository is a candidate source backed by a MongoDB collection.
type MongoPlaceRepository struct {
	collection *mongo.Collection
}

func NewMongoPlaceRepository(db *mongo.Database) *MongoPlaceRepository {
	return &MongoPlaceRepository{collection: db.Collection(MongoPlacesCollection)}
}

// EnsureIndexes creates the geohash prefix index and the lat/lon index.
func (r *MongoPlaceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "geohash", Value: 1}}},
		{Keys: bson.D{{Key: "lat", Value: 1}, {Key: "lon", Value: 1}}},
	})
	return err
}

// Fetch matches cells with an anchored regex so the geohash index is used
// for the prefix scan. Places whose name or English name contains the query
// text come first, then the most posted.
func (r *MongoPlaceRepository) Fetch(ctx context.Context, q domain.CandidateQuery) ([]domain.PlaceCandidate, error) {
	cursor, err := r.collection.Aggregate(ctx, mongoFetchPipeline(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var places []domain.PlaceCandidate
	if err := cursor.All(ctx, &places); err != nil {
		return nil, err
	}
	for i := range places {
		if places[i].Tags == nil {
			places[i].Tags = []string{}
		}
	}
	return places, nil
}

func mongoFetchPipeline(q domain.CandidateQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: mongoPlaceFilter(q)}}}

	sort := bson.D{{Key: "post_count", Value: -1}, {Key: "_id", Value: 1}}
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := regexp.QuoteMeta(text)
		contains := func(field string) bson.M {
			return bson.M{"$regexMatch": bson.M{
				"input":   bson.M{"$ifNull": bson.A{"$" + field, ""}},
				"regex":   pattern,
				"options": "i",
			}}
		}
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{
			"text_match": bson.M{"$or": bson.A{contains("name"), contains("name_en")}},
		}}})
		sort = append(bson.D{{Key: "text_match", Value: -1}}, sort...)
	}

	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	if q.MaxResults > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(q.MaxResults)}})
	}
	if strings.TrimSpace(q.Text) != "" {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{"text_match": 0}}})
	}
	return pipeline
}

func mongoPlaceFilter(q domain.CandidateQuery) bson.M {
	filter := bson.M{}
	if len(q.Cells) > 0 {
		quoted := make([]string, len(q.Cells))
		for i, c := range q.Cells {
			quoted[i] = regexp.QuoteMeta(c)
		}
		filter["geohash"] = bson.M{"$regex": "^(?:" + strings.Join(quoted, "|") + ")"}
	}
	if b, ok := radiusBound(q); ok {
		filter["lat"] = bson.M{"$gte": b.Min.Lat(), "$lte": b.Max.Lat()}
		filter["lon"] = bson.M{"$gte": b.Min.Lon(), "$lte": b.Max.Lon()}
	}
	return filter
}

// UpsertPlaces replaces documents by ID in one unordered bulk write.
func (r *MongoPlaceRepository) UpsertPlaces(ctx context.Context, places []domain.PlaceCandidate) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, 0, len(places))
	for _, p := range places {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": p.ID}).
			SetReplacement(p).
			SetUpsert(true))
	}
	res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return int(res.UpsertedCount + res.MatchedCount), nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoTrack and mongoFingerprint are the on-wire document shapes; kept
// separate from Track/Fingerprint so the store's public model stays free of
// bson tags.
type mongoTrack struct {
	TrackID      int64  `bson:"track_id"`
	ExternalID   string `bson:"external_id"`
	Title        string `bson:"title"`
	Artist       string `bson:"artist"`
	ThumbnailURL string `bson:"thumbnail_url"`
}

type mongoFingerprint struct {
	FingerprintID int64  `bson:"fingerprint_id"`
	HashValue     uint32 `bson:"hash_value"`
	AnchorTime    int64  `bson:"anchor_time"`
	TrackID       int64  `bson:"track_id"`
}

type mongoCounter struct {
	ID   string `bson:"_id"`
	Next int64  `bson:"next"`
}

// MongoStore is the alternate Store backend, for deployments that point
// DB_URL at a mongodb:// or mongodb+srv:// URI instead of a sqlite file.
type MongoStore struct {
	client       *mongo.Client
	tracks       *mongo.Collection
	fingerprints *mongo.Collection
	counters     *mongo.Collection
}

// OpenMongo connects to uri and ensures the collections' indexes exist.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		tracks:       db.Collection("tracks"),
		fingerprints: db.Collection("fingerprints"),
		counters:     db.Collection("counters"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating mongo indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.tracks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "external_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.fingerprints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "hash_value", Value: 1}}},
		{Keys: bson.D{{Key: "track_id", Value: 1}}},
	})
	return err
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// nextID increments the named counter document and returns its new value,
// mongo's standard substitute for a relational AUTOINCREMENT column.
func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var c mongoCounter
	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"next": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.Next, nil
}

// InsertTrack writes the track document and then its fingerprint documents
// without a multi-document transaction. If a later step fails, the track and
// any fingerprints already written for it are deleted again; until the call
// returns, a concurrent LookupHashes can see some of its fingerprints.
func (s *MongoStore) InsertTrack(ctx context.Context, externalID, title, artist, thumbnailURL string, fingerprints []Fingerprint) (int64, error) {
	trackID, err := s.nextID(ctx, "track_id")
	if err != nil {
		return 0, err
	}

	_, err = s.tracks.InsertOne(ctx, mongoTrack{
		TrackID:      trackID,
		ExternalID:   externalID,
		Title:        title,
		Artist:       artist,
		ThumbnailURL: thumbnailURL,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicateExternalID
		}
		return 0, err
	}

	if len(fingerprints) > 0 {
		docs := make([]interface{}, len(fingerprints))
		for i, fp := range fingerprints {
			fpID, err := s.nextID(ctx, "fingerprint_id")
			if err != nil {
				s.tracks.DeleteOne(ctx, bson.M{"track_id": trackID})
				return 0, err
			}
			docs[i] = mongoFingerprint{
				FingerprintID: fpID,
				HashValue:     fp.HashValue,
				AnchorTime:    fp.AnchorTime,
				TrackID:       trackID,
			}
		}
		if _, err := s.fingerprints.InsertMany(ctx, docs); err != nil {
			s.fingerprints.DeleteMany(ctx, bson.M{"track_id": trackID})
			s.tracks.DeleteOne(ctx, bson.M{"track_id": trackID})
			return 0, err
		}
	}

	return trackID, nil
}

func (s *MongoStore) LookupHashes(ctx context.Context, hashes []uint32) ([]HashHit, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	unique := dedupeHashes(hashes)

	cur, err := s.fingerprints.Find(ctx, bson.M{"hash_value": bson.M{"$in": unique}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var hits []HashHit
	for cur.Next(ctx) {
		var fp mongoFingerprint
		if err := cur.Decode(&fp); err != nil {
			return nil, err
		}
		hits = append(hits, HashHit{HashValue: fp.HashValue, AnchorTime: fp.AnchorTime, TrackID: fp.TrackID})
	}
	return hits, cur.Err()
}

func (s *MongoStore) GetTrack(ctx context.Context, trackID int64) (Track, error) {
	var t mongoTrack
	err := s.tracks.FindOne(ctx, bson.M{"track_id": trackID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Track{}, ErrTrackNotFound
	}
	if err != nil {
		return Track{}, err
	}
	return Track{TrackID: t.TrackID, ExternalID: t.ExternalID, Title: t.Title, Artist: t.Artist, ThumbnailURL: t.ThumbnailURL}, nil
}

func (s *MongoStore) ListTracks(ctx context.Context, offset, limit int) (int, []Track, error) {
	total, err := s.tracks.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "track_id", Value: 1}}).SetSkip(int64(offset)).SetLimit(int64(limit))
	cur, err := s.tracks.Find(ctx, bson.M{}, opts)
	if err != nil {
		return 0, nil, err
	}
	defer cur.Close(ctx)

	var tracks []Track
	for cur.Next(ctx) {
		var t mongoTrack
		if err := cur.Decode(&t); err != nil {
			return 0, nil, err
		}
		tracks = append(tracks, Track{TrackID: t.TrackID, ExternalID: t.ExternalID, Title: t.Title, Artist: t.Artist, ThumbnailURL: t.ThumbnailURL})
	}
	return int(total), tracks, cur.Err()
}

// Package mongostore serves grid queries from MongoDB collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corpusdash/internal/domain"
	"corpusdash/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Store struct {
	Client *mongo.Client
	// DefaultDatabase is used for collections that do not name one.
	DefaultDatabase string
}

var _ store.Store = (*Store)(nil)

// Open connects to uri and pings the primary before returning.
func Open(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := &Store{Client: client}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx, readpref.Primary()); err != nil {
		return domain.UnavailableError{Store: "mongo", Err: err}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func (s *Store) collection(c domain.Collection) *mongo.Collection {
	db := c.Database
	if db == "" {
		db = s.DefaultDatabase
	}
	return s.Client.Database(db).Collection(c.Name)
}

func (s *Store) Find(ctx context.Context, c domain.Collection, q domain.Query, _ store.Options) ([]domain.Row, error) {
	cur, err := s.collection(c).Find(ctx, Filter(q), FindOptions(q))
	if err != nil {
		return nil, classify(err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	rows := make([]domain.Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, normalizeDoc(d))
	}
	return rows, nil
}

func (s *Store) Count(ctx context.Context, c domain.Collection, q domain.Query, _ store.Options) (int64, error) {
	n, err := s.collection(c).CountDocuments(ctx, Filter(q))
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Filter builds the query document: every column filter as an $eq, so object
// values are compared literally and never read as operators, and the global
// filter as a $text search. Repeated fields go under $and so none is lost.
func Filter(q domain.Query) bson.D {
	seen := make(map[string]bool, len(q.Filters))
	repeated := false
	for _, f := range q.Filters {
		if seen[f.ID] {
			repeated = true
		}
		seen[f.ID] = true
	}

	var out bson.D
	if repeated {
		and := make(bson.A, 0, len(q.Filters))
		for _, f := range q.Filters {
			and = append(and, bson.D{{Key: f.ID, Value: eq(f.Value)}})
		}
		out = append(out, bson.E{Key: "$and", Value: and})
	} else {
		for _, f := range q.Filters {
			out = append(out, bson.E{Key: f.ID, Value: eq(f.Value)})
		}
	}

	if q.GlobalFilter != "" {
		out = append(out, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q.GlobalFilter}}})
	}
	if out == nil {
		out = bson.D{}
	}
	return out
}

func eq(v any) bson.D {
	return bson.D{{Key: "$eq", Value: v}}
}

// FindOptions sorts by the requested field with _id as tiebreaker, then
// skips and limits.
func FindOptions(q domain.Query) *options.FindOptions {
	dir := 1
	if q.Sort.Desc {
		dir = -1
	}
	sort := bson.D{{Key: q.Sort.ID, Value: dir}}
	if q.Sort.ID != "_id" {
		sort = append(sort, bson.E{Key: "_id", Value: 1})
	}
	return options.Find().
		SetSort(sort).
		SetSkip(int64(q.Page.Start)).
		SetLimit(int64(q.Page.Size))
}

func classify(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return domain.UnavailableError{Store: "mongo", Err: err}
	}
	return err
}

func normalizeDoc(m bson.M) domain.Row {
	row := make(domain.Row, len(m))
	for k, v := range m {
		row[k] = normalize(v)
	}
	return row
}

// normalize turns BSON values into plain JSON-friendly Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case primitive.Decimal128:
		return t.String()
	case bson.M:
		return map[string]any(normalizeDoc(t))
	case map[string]any:
		return map[string]any(normalizeDoc(t))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

package projectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const projectsCollection = "projects"

// mongoProject is the stored document. The project document is kept as a JSON
// string so it round-trips byte for byte.
type mongoProject struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	SchemaData  string    `bson:"schema_data,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toMongo(p *Project) mongoProject {
	return mongoProject{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		SchemaData:  string(p.SchemaData),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d mongoProject) project() *Project {
	p := &Project{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.SchemaData != "" {
		p.SchemaData = json.RawMessage(d.SchemaData)
	}
	return p
}

// Mongo stores projects as documents in one collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and uses the projects collection of database.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(projectsCollection),
	}, nil
}

func (m *Mongo) Create(ctx context.Context, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := newProject(in)
	if _, err := m.coll.InsertOne(ctx, toMongo(p)); err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	return p, nil
}

func (m *Mongo) Update(ctx context.Context, id string, in Input) (*Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Project{ID: id}
	p.apply(in)

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "schema_data", Value: string(p.SchemaData)},
		{Key: "updated_at", Value: p.UpdatedAt},
	}}}
	res, err := m.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *Mongo) Get(ctx context.Context, id string) (*Project, error) {
	var doc mongoProject
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return doc.project(), nil
}

func (m *Mongo) List(ctx context.Context) ([]Project, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.D{{Key: "schema_data", Value: 0}})
	cursor, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	var docs []mongoProject
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}
	projects := make([]Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, *d.project())
	}
	return projects, nil
}

func (m *Mongo) Delete(ctx context.Context, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

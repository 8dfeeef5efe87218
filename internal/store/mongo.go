package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonathan/archive-enricher/internal/types"
)

const documentsCollection = "enriched_documents"

// Mongo holds the document store connection.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects to the document store and verifies the connection.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

// Close disconnects from the document store.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) documents() *mongo.Collection {
	return m.db.Collection(documentsCollection)
}

// UpsertDocument stores an enriched document keyed by (job_id, document_id).
// It reports whether a new document was inserted; a replace of an existing
// document (queue redelivery) returns false so job counters stay idempotent.
func (m *Mongo) UpsertDocument(ctx context.Context, doc *types.EnrichedDocument) (bool, error) {
	filter := bson.M{"job_id": doc.JobID, "document_id": doc.DocumentID}
	result, err := m.documents().ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert document %s: %w", doc.DocumentID, err)
	}
	return result.UpsertedCount > 0, nil
}

// GetDocument retrieves one enriched document. Returns nil when none exists.
func (m *Mongo) GetDocument(ctx context.Context, jobID uuid.UUID, documentID string) (*types.EnrichedDocument, error) {
	var doc types.EnrichedDocument
	err := m.documents().FindOne(ctx, bson.M{"job_id": jobID, "document_id": documentID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return &doc, nil
}

// ListDocuments retrieves a job's enriched documents.
func (m *Mongo) ListDocuments(ctx context.Context, jobID uuid.UUID) ([]types.EnrichedDocument, error) {
	cursor, err := m.documents().Find(ctx, bson.M{"job_id": jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []types.EnrichedDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// SetReviewStatus records a reviewer's verdict on a stored document and
// applies any field corrections at their dotted paths.
func (m *Mongo) SetReviewStatus(ctx context.Context, jobID uuid.UUID, documentID string, status types.ReviewStatus, corrections map[string]any) error {
	set := bson.M{
		"review_status": status,
	}
	for path, value := range corrections {
		set["fields."+path] = value
	}

	result, err := m.documents().UpdateOne(ctx,
		bson.M{"job_id": jobID, "document_id": documentID},
		bson.M{"$set": set, "$currentDate": bson.M{"updated_at": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to set review status for %s: %w", documentID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document not found: %s", documentID)
	}
	return nil
}

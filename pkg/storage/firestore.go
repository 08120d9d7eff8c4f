package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/chargee/sandboxd/pkg/log"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const cacheCollection = "cache"

// FirestoreProvider implements Database on Google Cloud Firestore. Entries
// live in a flat "cache" collection, one document per key, holding the
// payload as a JSON string plus the write timestamp.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID may be empty when it can be inferred from the environment.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Get returns the entry for key and the time it was stored.
func (f *FirestoreProvider) Get(ctx context.Context, key string) (json.RawMessage, time.Time, error) {
	doc, err := f.client.Collection(cacheCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to fetch cache doc %s: %w", key, err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "cache doc missing json", slog.String("key", key))
		return nil, time.Time{}, fmt.Errorf("cache document %s missing 'json' field: %w", key, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "cache doc json not string", slog.String("key", key))
		return nil, time.Time{}, fmt.Errorf("cache document %s 'json' field is not a string", key)
	}

	var storedAt time.Time
	if v, err := doc.DataAt("timestamp"); err == nil {
		if t, ok := v.(time.Time); ok {
			storedAt = t
		}
	}

	return json.RawMessage(jsonStr), storedAt, nil
}

// Put stores value under key, stamping it with the current time.
func (f *FirestoreProvider) Put(ctx context.Context, key string, value json.RawMessage) error {
	_, err := f.client.Collection(cacheCollection).Doc(key).Set(ctx, map[string]interface{}{
		"json":      string(value),
		"timestamp": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save cache doc %s: %w", key, err)
	}
	return nil
}

// Purge deletes entries stored before olderThan.
func (f *FirestoreProvider) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	// firestore automatically creates indexes for top-level fields
	iter := f.client.Collection(cacheCollection).
		Where("timestamp", "<", olderThan).
		Documents(ctx)
	defer iter.Stop()

	var deleted int
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("error iterating cache docs: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete cache doc %s: %w", doc.Ref.ID, err)
		}
		deleted++
	}
	if deleted > 0 {
		log.Ctx(ctx).InfoContext(ctx, "purged stale cache entries", slog.Int("count", deleted))
	}
	return deleted, nil
}

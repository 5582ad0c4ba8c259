package storage

import (
	"context"
	"time"

	"housing-navigator/models"
)

// ListingStore is the durability collaborator the engine writes through.
// The engine never assumes exclusive access: implementations must
// serialize concurrent upserts of the same identity key and must never
// let a synthetic record replace a stored exact/heuristic one.
type ListingStore interface {
	// Upsert stores the listing under its identity key and returns the
	// record as stored (which may differ from the input when the
	// synthetic-never-overwrites guard applies).
	Upsert(ctx context.Context, l *models.Listing) (*models.Listing, error)
	// FindByKey returns the stored listing or nil when absent.
	FindByKey(ctx context.Context, key string) (*models.Listing, error)
	// FetchAll returns every active stored listing.
	FetchAll(ctx context.Context) ([]*models.Listing, error)
	// MarkStale deactivates listings not seen since olderThan and
	// returns how many were affected.
	MarkStale(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"housing-navigator/models"
	"housing-navigator/storage"
	"housing-navigator/utils"
)

// IdentityKey derives the stable identity of a listing from its title,
// address, bedroom count, and price. The same unit scraped twice, or
// from two sources, yields the same key.
func IdentityKey(title, address string, bedrooms *int, price *int64) string {
	b := ""
	if bedrooms != nil {
		b = fmt.Sprintf("%d", *bedrooms)
	}
	p := ""
	if price != nil {
		p = fmt.Sprintf("%d", *price)
	}
	sum := md5.Sum([]byte(title + address + b + p))
	return hex.EncodeToString(sum[:])
}

// Deduper merges incoming listings with stored ones and writes the
// result through a ListingStore.
type Deduper struct {
	store  storage.ListingStore
	logger *utils.Logger
}

func NewDeduper(store storage.ListingStore, logger *utils.Logger) *Deduper {
	return &Deduper{store: store, logger: logger}
}

// Upsert stores the listing, merging it with any existing record that
// shares its identity key. On a storage conflict the merge is redone
// against the fresh stored record and retried once.
func (d *Deduper) Upsert(ctx context.Context, incoming *models.Listing) (*models.Listing, error) {
	if incoming.IdentityKey == "" {
		incoming.IdentityKey = IdentityKey(incoming.Title, incoming.Address, incoming.BedroomCount, incoming.Price)
	}
	if incoming.LastSeenAt.IsZero() {
		incoming.LastSeenAt = time.Now().UTC()
	}

	stored, err := d.merge(ctx, incoming)
	if errors.Is(err, models.ErrStorageConflict) {
		d.logger.Warn("[dedupe] Conflict on %s, retrying merge", incoming.IdentityKey)
		stored, err = d.merge(ctx, incoming)
	}
	return stored, err
}

func (d *Deduper) merge(ctx context.Context, incoming *models.Listing) (*models.Listing, error) {
	existing, err := d.store.FindByKey(ctx, incoming.IdentityKey)
	if err != nil {
		return nil, err
	}

	merged := incoming
	if existing != nil {
		merged = mergeListings(existing, incoming)
	}
	return d.store.Upsert(ctx, merged)
}

// mergeListings combines a stored record with an incoming one. Incoming
// non-null fields win, except that a synthetic record never replaces
// exact or heuristic data. LastSeenAt always advances.
func mergeListings(existing, incoming *models.Listing) *models.Listing {
	out := *existing
	out.LastSeenAt = incoming.LastSeenAt

	if incoming.Confidence == models.ConfidenceSynthetic && existing.Confidence != models.ConfidenceSynthetic {
		return &out
	}

	out.Title = incoming.Title
	out.Address = incoming.Address
	if incoming.Region.City != "" {
		out.Region = incoming.Region
	}
	if incoming.Price != nil {
		out.Price = incoming.Price
	}
	if incoming.BedroomCount != nil {
		out.BedroomCount = incoming.BedroomCount
	}
	if incoming.BathroomCount != nil {
		out.BathroomCount = incoming.BathroomCount
	}
	if incoming.Area != nil {
		out.Area = incoming.Area
	}
	if len(incoming.AcceptedPrograms) > 0 {
		out.AcceptedPrograms = unionSorted(existing.AcceptedPrograms, incoming.AcceptedPrograms)
	}
	if len(incoming.Amenities) > 0 {
		out.Amenities = unionSorted(existing.Amenities, incoming.Amenities)
	}
	if incoming.AvailableFrom != nil {
		out.AvailableFrom = incoming.AvailableFrom
	}
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.SourceName != "" {
		out.SourceName = incoming.SourceName
	}
	if incoming.SourceURL != "" {
		out.SourceURL = incoming.SourceURL
	}
	if incoming.ImageURL != "" {
		out.ImageURL = incoming.ImageURL
	}
	if incoming.Coordinates != nil {
		out.Coordinates = incoming.Coordinates
	}
	out.Confidence = higherConfidence(existing.Confidence, incoming.Confidence)

	return &out
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

var confidenceRank = map[models.Confidence]int{
	models.ConfidenceSynthetic: 0,
	models.ConfidenceHeuristic: 1,
	models.ConfidenceExact:     2,
}

func higherConfidence(a, b models.Confidence) models.Confidence {
	if confidenceRank[b] > confidenceRank[a] {
		return b
	}
	return a
}

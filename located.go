package bowgo

import (
	"context"
	"sync"

	"github.com/hupe1980/bowgo/rank"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// LocatedMatch is a ranked match decorated with the document's location,
// if one was recorded.
type LocatedMatch struct {
	rank.Match

	Location *LatLng
}

// LocatedCatalog decorates a catalog with per-document geolocations. The
// locations are runtime bookkeeping for presentation layers; they take no
// part in ranking and are not persisted with snapshots.
type LocatedCatalog struct {
	*Catalog

	mu        sync.RWMutex
	locations map[string]LatLng
}

// NewLocatedCatalog wraps a catalog with location bookkeeping.
func NewLocatedCatalog(c *Catalog) *LocatedCatalog {
	return &LocatedCatalog{
		Catalog:   c,
		locations: make(map[string]LatLng),
	}
}

// AddWithLocation adds a document and records its location. A nil location
// adds the document without one.
func (lc *LocatedCatalog) AddWithLocation(ctx context.Context, key string, descriptors [][]float32, loc *LatLng) error {
	if err := lc.Catalog.Add(ctx, key, descriptors); err != nil {
		return err
	}

	if loc != nil {
		lc.mu.Lock()
		lc.locations[key] = *loc
		lc.mu.Unlock()
	}

	return nil
}

// SetLocation records or replaces the location of a stored document.
func (lc *LocatedCatalog) SetLocation(key string, loc LatLng) error {
	if !lc.Catalog.Has(key) {
		return &ErrKeyNotFound{Key: key}
	}

	lc.mu.Lock()
	lc.locations[key] = loc
	lc.mu.Unlock()

	return nil
}

// Location returns the recorded location of a document.
func (lc *LocatedCatalog) Location(key string) (LatLng, bool) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	loc, ok := lc.locations[key]
	return loc, ok
}

// Remove deletes the document and drops its location. The wrapped catalog's
// statistics contract applies: corpus statistics are not rolled back.
func (lc *LocatedCatalog) Remove(ctx context.Context, key string) error {
	if err := lc.Catalog.Remove(ctx, key); err != nil {
		return err
	}

	lc.mu.Lock()
	delete(lc.locations, key)
	lc.mu.Unlock()

	return nil
}

// Query ranks like Catalog.Query and decorates each match with its
// location.
func (lc *LocatedCatalog) Query(ctx context.Context, descriptors [][]float32, optFns ...func(o *QueryOptions)) ([]LocatedMatch, error) {
	matches, err := lc.Catalog.Query(ctx, descriptors, optFns...)
	if err != nil {
		return nil, err
	}

	return lc.decorate(matches), nil
}

// QueryTF ranks like Catalog.QueryTF and decorates each match with its
// location.
func (lc *LocatedCatalog) QueryTF(ctx context.Context, tf []float32, optFns ...func(o *QueryOptions)) ([]LocatedMatch, error) {
	matches, err := lc.Catalog.QueryTF(ctx, tf, optFns...)
	if err != nil {
		return nil, err
	}

	return lc.decorate(matches), nil
}

func (lc *LocatedCatalog) decorate(matches []rank.Match) []LocatedMatch {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	located := make([]LocatedMatch, len(matches))
	for i, m := range matches {
		located[i] = LocatedMatch{Match: m}
		if loc, ok := lc.locations[m.Key]; ok {
			located[i].Location = &loc
		}
	}

	return located
}

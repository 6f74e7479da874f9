package meta

import (
	"strings"

	"github.com/franz/tunedex/internal/store"
)

// Deduplicator resolves Artist, Album and Genre rows by normalized name.
// Uniqueness is enforced by the store, so concurrent first inserts of the
// same key converge on one row.
type Deduplicator struct {
	store *store.Store
}

// NewDeduplicator creates a deduplicator over s
func NewDeduplicator(s *store.Store) *Deduplicator {
	return &Deduplicator{store: s}
}

// GetOrCreateArtist returns nil when name normalizes to nothing
func (d *Deduplicator) GetOrCreateArtist(name string) (*store.Artist, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, nil
	}
	a, _, err := d.store.GetOrCreateArtist(strings.TrimSpace(name), key)
	return a, err
}

// GetOrCreateAlbum resolves an album by normalized name and album artist
// (which may be nil). Returns nil when name normalizes to nothing.
func (d *Deduplicator) GetOrCreateAlbum(name string, albumArtist *store.Artist) (*store.Album, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, nil
	}
	var artistID int64
	if albumArtist != nil {
		artistID = albumArtist.ID
	}
	al, _, err := d.store.GetOrCreateAlbum(strings.TrimSpace(name), key, artistID)
	return al, err
}

// GetOrCreateGenre stores and looks up genres by their normalized name
func (d *Deduplicator) GetOrCreateGenre(name string) (*store.Genre, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, nil
	}
	g, _, err := d.store.GetOrCreateGenre(key)
	return g, err
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ArtworkLookup is a cached keyword search against the online artwork source
type ArtworkLookup struct {
	Keywords    string
	ReleaseMBID string // empty when the search found nothing
	CachedAt    time.Time
	HitCount    int
}

// GetArtworkLookup returns the cached lookup for keywords, counting the hit
func (s *Store) GetArtworkLookup(keywords string) (*ArtworkLookup, error) {
	var l ArtworkLookup
	var mbid sql.NullString
	err := s.db.QueryRow(`
		SELECT keywords, release_mbid, cached_at, hit_count
		FROM artwork_lookups WHERE keywords = ?
	`, keywords).Scan(&l.Keywords, &mbid, &l.CachedAt, &l.HitCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artwork lookup: %w", err)
	}
	l.ReleaseMBID = mbid.String

	if _, err := s.db.Exec(`UPDATE artwork_lookups SET hit_count = hit_count + 1 WHERE keywords = ?`, keywords); err != nil {
		return nil, fmt.Errorf("failed to count artwork lookup hit: %w", err)
	}

	return &l, nil
}

// PutArtworkLookup records the release found for keywords (empty for none)
func (s *Store) PutArtworkLookup(keywords, releaseMBID string) error {
	_, err := s.db.Exec(`
		INSERT INTO artwork_lookups (keywords, release_mbid, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (keywords) DO UPDATE SET
			release_mbid = excluded.release_mbid,
			cached_at = excluded.cached_at
	`, keywords, sql.NullString{String: releaseMBID, Valid: releaseMBID != ""}, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store artwork lookup: %w", err)
	}
	return nil
}

// ClearArtworkLookups removes cached lookups older than olderThan
func (s *Store) ClearArtworkLookups(olderThan time.Duration) (int, error) {
	result, err := s.db.Exec(`DELETE FROM artwork_lookups WHERE cached_at < ?`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to clear artwork lookups: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

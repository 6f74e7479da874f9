package store

import "fmt"

// Stats summarizes the index
type Stats struct {
	Directories     int
	Files           int
	PendingMetadata int
	WithMetadata    int
	Artists         int
	Albums          int
	Genres          int
	ArtworkLookups  int
}

// GetStats counts rows across the index tables
func (s *Store) GetStats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM directories),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM files WHERE meta_indexed_at IS NULL),
			(SELECT COUNT(*) FROM files WHERE meta_data_id IS NOT NULL),
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM albums),
			(SELECT COUNT(*) FROM genres),
			(SELECT COUNT(*) FROM artwork_lookups)
	`).Scan(&st.Directories, &st.Files, &st.PendingMetadata, &st.WithMetadata,
		&st.Artists, &st.Albums, &st.Genres, &st.ArtworkLookups)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &st, nil
}

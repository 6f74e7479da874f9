package store

import (
	"database/sql"
	"fmt"
)

// InsertMetaData persists a new metadata snapshot and sets m.ID
func (s *Store) InsertMetaData(m *MetaData) error {
	result, err := s.db.Exec(`
		INSERT INTO metadata (track, track_total, title, artist_id, album_id, year, genre_id, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Track, m.TrackTotal, m.Title, nullID(m.ArtistID), nullID(m.AlbumID), m.Year, nullID(m.GenreID), m.Duration)
	if err != nil {
		return fmt.Errorf("failed to insert metadata: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get metadata ID: %w", err)
	}
	m.ID = id
	return nil
}

// GetMetaData retrieves a metadata snapshot by ID
func (s *Store) GetMetaData(id int64) (*MetaData, error) {
	var m MetaData
	var track, trackTotal, year sql.NullInt64
	var title sql.NullString
	var artistID, albumID, genreID sql.NullInt64
	var duration sql.NullFloat64

	err := s.db.QueryRow(`
		SELECT id, track, track_total, title, artist_id, album_id, year, genre_id, duration, created_at
		FROM metadata WHERE id = ?
	`, id).Scan(&m.ID, &track, &trackTotal, &title, &artistID, &albumID, &year, &genreID, &duration, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	m.Track = intPtr(track)
	m.TrackTotal = intPtr(trackTotal)
	m.Year = intPtr(year)
	if title.Valid {
		m.Title = &title.String
	}
	if duration.Valid {
		m.Duration = &duration.Float64
	}
	m.ArtistID = artistID.Int64
	m.AlbumID = albumID.Int64
	m.GenreID = genreID.Int64

	return &m, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

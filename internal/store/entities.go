package store

import (
	"database/sql"
	"fmt"
)

// GetOrCreateArtist returns the artist keyed by normName, inserting it with
// the given display name if absent. A concurrent insert of the same key is
// absorbed by the unique index and the winner's row is returned.
func (s *Store) GetOrCreateArtist(name, normName string) (a *Artist, created bool, err error) {
	lookup := func(q queryer) (*Artist, error) {
		var a Artist
		err := q.QueryRow(`SELECT id, name, norm_name FROM artists WHERE norm_name = ?`, normName).
			Scan(&a.ID, &a.Name, &a.NormName)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return &a, err
	}

	err = s.Transaction(func(tx *sql.Tx) error {
		if a, err = lookup(tx); err != nil || a != nil {
			return err
		}
		created, err = insertIgnoringConflict(tx, `INSERT INTO artists (name, norm_name) VALUES (?, ?) ON CONFLICT DO NOTHING`, name, normName)
		if err != nil {
			return fmt.Errorf("failed to insert artist: %w", err)
		}
		a, err = lookup(tx)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create artist: %w", err)
	}
	return a, created, nil
}

// GetOrCreateAlbum returns the album keyed by (normName, albumArtistID),
// inserting it with the given display name if absent.
func (s *Store) GetOrCreateAlbum(name, normName string, albumArtistID int64) (al *Album, created bool, err error) {
	lookup := func(q queryer) (*Album, error) {
		var al Album
		var artistID sql.NullInt64
		err := q.QueryRow(`
			SELECT id, name, norm_name, albumartist_id FROM albums
			WHERE norm_name = ? AND albumartist_id IS ?
		`, normName, nullID(albumArtistID)).Scan(&al.ID, &al.Name, &al.NormName, &artistID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		al.AlbumArtistID = artistID.Int64
		return &al, err
	}

	err = s.Transaction(func(tx *sql.Tx) error {
		if al, err = lookup(tx); err != nil || al != nil {
			return err
		}
		created, err = insertIgnoringConflict(tx, `INSERT INTO albums (name, norm_name, albumartist_id) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			name, normName, nullID(albumArtistID))
		if err != nil {
			return fmt.Errorf("failed to insert album: %w", err)
		}
		al, err = lookup(tx)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create album: %w", err)
	}
	return al, created, nil
}

// GetOrCreateGenre returns the genre with the given normalized name
func (s *Store) GetOrCreateGenre(normName string) (g *Genre, created bool, err error) {
	lookup := func(q queryer) (*Genre, error) {
		var g Genre
		err := q.QueryRow(`SELECT id, name FROM genres WHERE name = ?`, normName).Scan(&g.ID, &g.Name)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return &g, err
	}

	err = s.Transaction(func(tx *sql.Tx) error {
		if g, err = lookup(tx); err != nil || g != nil {
			return err
		}
		created, err = insertIgnoringConflict(tx, `INSERT INTO genres (name) VALUES (?) ON CONFLICT DO NOTHING`, normName)
		if err != nil {
			return fmt.Errorf("failed to insert genre: %w", err)
		}
		g, err = lookup(tx)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create genre: %w", err)
	}
	return g, created, nil
}

// GetArtist retrieves an artist by ID
func (s *Store) GetArtist(id int64) (*Artist, error) {
	var a Artist
	err := s.db.QueryRow(`SELECT id, name, norm_name FROM artists WHERE id = ?`, id).Scan(&a.ID, &a.Name, &a.NormName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return &a, nil
}

// GetAlbum retrieves an album by ID
func (s *Store) GetAlbum(id int64) (*Album, error) {
	var al Album
	var artistID sql.NullInt64
	err := s.db.QueryRow(`SELECT id, name, norm_name, albumartist_id FROM albums WHERE id = ?`, id).
		Scan(&al.ID, &al.Name, &al.NormName, &artistID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", err)
	}
	al.AlbumArtistID = artistID.Int64
	return &al, nil
}

// GetGenre retrieves a genre by ID
func (s *Store) GetGenre(id int64) (*Genre, error) {
	var g Genre
	err := s.db.QueryRow(`SELECT id, name FROM genres WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get genre: %w", err)
	}
	return &g, nil
}

// insertIgnoringConflict runs an INSERT ... ON CONFLICT DO NOTHING and
// reports whether a row was written. A unique violation that slips past
// the conflict clause is treated as a lost race.
func insertIgnoringConflict(tx *sql.Tx, query string, args ...any) (bool, error) {
	result, err := tx.Exec(query, args...)
	if constraintKind(err) == "unique" {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

const fileColumns = `id, directory_id, filename, meta_indexed_at, meta_data_id`

// InsertFile inserts a file row if (directory, filename) is not indexed yet.
// Returns the row and whether it was newly created.
func (s *Store) InsertFile(directoryID int64, filename string) (f *File, created bool, err error) {
	err = s.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO files (directory_id, filename) VALUES (?, ?)
			ON CONFLICT (directory_id, filename) DO NOTHING
		`, directoryID, filename)
		if err != nil {
			return fmt.Errorf("failed to insert file: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 1 {
			created = true
		}

		f, err = scanFile(tx.QueryRow(`SELECT `+fileColumns+` FROM files WHERE directory_id = ? AND filename = ?`,
			directoryID, filename))
		if err != nil {
			return fmt.Errorf("failed to get file: %w", err)
		}
		if f == nil {
			return fmt.Errorf("file %q vanished after insert", filename)
		}
		return nil
	})
	return f, created, err
}

// GetFile retrieves a file by ID
func (s *Store) GetFile(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// GetFileByName retrieves a file by its directory and filename
func (s *Store) GetFileByName(directoryID int64, filename string) (*File, error) {
	f, err := scanFile(s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE directory_id = ? AND filename = ?`,
		directoryID, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListFiles returns the files of a directory ordered by filename
func (s *Store) ListFiles(directoryID int64) ([]*File, error) {
	return s.queryFiles(`SELECT `+fileColumns+` FROM files WHERE directory_id = ? ORDER BY filename`, directoryID)
}

// FilesMissingMetadata returns every file that was never run through extraction
func (s *Store) FilesMissingMetadata() ([]*File, error) {
	return s.queryFiles(`SELECT ` + fileColumns + ` FROM files WHERE meta_indexed_at IS NULL ORDER BY id`)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// DeleteFile deletes a file row together with the metadata it owns
func (s *Store) DeleteFile(id int64) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var metaID sql.NullInt64
		err := tx.QueryRow(`SELECT meta_data_id FROM files WHERE id = ?`, id).Scan(&metaID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get file: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
			return wrapDeleteErr("file", err)
		}
		if metaID.Valid {
			if _, err := tx.Exec(`DELETE FROM metadata WHERE id = ?`, metaID.Int64); err != nil {
				return wrapDeleteErr("metadata", err)
			}
		}
		return nil
	})
}

// SetFileMetadata points a file at a new metadata row (or none when metaID
// is 0), stamps meta_indexed_at, and drops the metadata it replaced.
func (s *Store) SetFileMetadata(fileID, metaID int64, indexedAt time.Time) error {
	return s.Transaction(func(tx *sql.Tx) error {
		var previous sql.NullInt64
		err := tx.QueryRow(`SELECT meta_data_id FROM files WHERE id = ?`, fileID).Scan(&previous)
		if err == sql.ErrNoRows {
			return fmt.Errorf("file %d: %w", fileID, sql.ErrNoRows)
		}
		if err != nil {
			return fmt.Errorf("failed to get file: %w", err)
		}

		if _, err := tx.Exec(`
			UPDATE files SET meta_data_id = ?, meta_indexed_at = ?
			WHERE id = ?
		`, nullID(metaID), indexedAt, fileID); err != nil {
			return fmt.Errorf("failed to update file metadata: %w", err)
		}

		if previous.Valid && previous.Int64 != metaID {
			if _, err := tx.Exec(`DELETE FROM metadata WHERE id = ?`, previous.Int64); err != nil {
				return wrapDeleteErr("metadata", err)
			}
		}
		return nil
	})
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var indexedAt sql.NullTime
	var metaID sql.NullInt64
	err := row.Scan(&f.ID, &f.DirectoryID, &f.Filename, &indexedAt, &metaID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		t := indexedAt.Time
		f.MetaIndexedAt = &t
	}
	f.MetaDataID = metaID.Int64
	return &f, nil
}

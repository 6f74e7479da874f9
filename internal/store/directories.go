package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
)

// EnsureRoot returns the library root, creating it on first use.
// A root recorded under a different base path is moved to basePath.
func (s *Store) EnsureRoot(basePath string) (*Directory, error) {
	var root *Directory
	err := s.Transaction(func(tx *sql.Tx) error {
		d, err := scanDirectory(tx.QueryRow(`SELECT id, parent_id, path FROM directories WHERE parent_id IS NULL`))
		if err != nil {
			return fmt.Errorf("failed to get root directory: %w", err)
		}

		if d == nil {
			result, err := tx.Exec(`INSERT INTO directories (parent_id, path) VALUES (NULL, ?)`, basePath)
			if err != nil {
				return fmt.Errorf("failed to insert root directory: %w", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get root directory ID: %w", err)
			}
			root = &Directory{ID: id, Path: basePath}
			return nil
		}

		if d.Path != basePath {
			if _, err := tx.Exec(`UPDATE directories SET path = ? WHERE id = ?`, basePath, d.ID); err != nil {
				return fmt.Errorf("failed to update root directory: %w", err)
			}
			d.Path = basePath
		}
		root = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

// GetDirectory retrieves a directory by ID
func (s *Store) GetDirectory(id int64) (*Directory, error) {
	d, err := scanDirectory(s.db.QueryRow(`SELECT id, parent_id, path FROM directories WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}
	return d, nil
}

// GetChildDirectory looks up a child of parentID by exact path segment
func (s *Store) GetChildDirectory(parentID int64, segment string) (*Directory, error) {
	d, err := scanDirectory(s.db.QueryRow(`
		SELECT id, parent_id, path FROM directories
		WHERE parent_id = ? AND path = ?
	`, parentID, segment))
	if err != nil {
		return nil, fmt.Errorf("failed to get child directory: %w", err)
	}
	return d, nil
}

// InsertDirectory inserts a child directory row.
// If the row already exists, the existing row is returned with created=false.
func (s *Store) InsertDirectory(parentID int64, segment string) (d *Directory, created bool, err error) {
	err = s.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO directories (parent_id, path) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, parentID, segment)
		if err != nil {
			return fmt.Errorf("failed to insert directory: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 1 {
			created = true
		}

		d, err = scanDirectory(tx.QueryRow(`
			SELECT id, parent_id, path FROM directories
			WHERE parent_id = ? AND path = ?
		`, parentID, segment))
		if err != nil {
			return fmt.Errorf("failed to get directory: %w", err)
		}
		if d == nil {
			return fmt.Errorf("directory %q vanished after insert", segment)
		}
		return nil
	})
	return d, created, err
}

// ListChildDirectories returns the children of parentID ordered by path
func (s *Store) ListChildDirectories(parentID int64) ([]*Directory, error) {
	rows, err := s.db.Query(`
		SELECT id, parent_id, path FROM directories
		WHERE parent_id = ? ORDER BY path
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	defer rows.Close()

	var dirs []*Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		dirs = append(dirs, d)
	}

	return dirs, rows.Err()
}

// ListDirectory returns the files of a directory ordered by filename and
// its subdirectories ordered by path
func (s *Store) ListDirectory(id int64) ([]*File, []*Directory, error) {
	files, err := s.ListFiles(id)
	if err != nil {
		return nil, nil, err
	}
	dirs, err := s.ListChildDirectories(id)
	if err != nil {
		return nil, nil, err
	}
	return files, dirs, nil
}

// DirectoryChain returns the ancestors of id and id itself, root first
func (s *Store) DirectoryChain(id int64) ([]*Directory, error) {
	rows, err := s.db.Query(`
		WITH RECURSIVE chain(id, parent_id, path, depth) AS (
			SELECT id, parent_id, path, 0 FROM directories WHERE id = ?
			UNION ALL
			SELECT d.id, d.parent_id, d.path, c.depth + 1
			FROM directories d JOIN chain c ON d.id = c.parent_id
		)
		SELECT id, parent_id, path FROM chain ORDER BY depth DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query directory chain: %w", err)
	}
	defer rows.Close()

	var chain []*Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
		chain = append(chain, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, nil
	}

	return chain, nil
}

// AbsolutePath joins the root's base path with every segment down to id
func (s *Store) AbsolutePath(id int64) (string, error) {
	chain, err := s.DirectoryChain(id)
	if err != nil {
		return "", err
	}
	if chain == nil {
		return "", fmt.Errorf("directory %d does not exist", id)
	}
	return JoinChain(chain), nil
}

// JoinChain builds a filesystem path from a root-first directory chain
func JoinChain(chain []*Directory) string {
	parts := make([]string, len(chain))
	for i, d := range chain {
		parts[i] = d.Path
	}
	return filepath.Join(parts...)
}

// DeleteDirectory deletes a single directory row. It fails with
// ErrStaleReference while files or subdirectories still reference it.
func (s *Store) DeleteDirectory(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM directories WHERE id = ?`, id); err != nil {
		return wrapDeleteErr("directory", err)
	}
	return nil
}

// DeleteDirectoryTree deletes id and everything below it, deepest first,
// in one transaction. Returns how many file and directory rows were removed.
func (s *Store) DeleteDirectoryTree(id int64) (filesDeleted, dirsDeleted int, err error) {
	err = s.Transaction(func(tx *sql.Tx) error {
		ids, err := subtreePostOrder(tx, id)
		if err != nil {
			return err
		}

		for _, dirID := range ids {
			if _, err := tx.Exec(`
				DELETE FROM metadata WHERE id IN (
					SELECT meta_data_id FROM files
					WHERE directory_id = ? AND meta_data_id IS NOT NULL
				)
			`, dirID); err != nil {
				return wrapDeleteErr("metadata", err)
			}

			result, err := tx.Exec(`DELETE FROM files WHERE directory_id = ?`, dirID)
			if err != nil {
				return wrapDeleteErr("files", err)
			}
			n, _ := result.RowsAffected()
			filesDeleted += int(n)

			if _, err := tx.Exec(`DELETE FROM directories WHERE id = ?`, dirID); err != nil {
				return wrapDeleteErr("directory", err)
			}
			dirsDeleted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return filesDeleted, dirsDeleted, nil
}

// subtreePostOrder returns the IDs of id's subtree, deepest first
func subtreePostOrder(q queryer, id int64) ([]int64, error) {
	rows, err := q.Query(`
		WITH RECURSIVE sub(id, depth) AS (
			SELECT id, 0 FROM directories WHERE id = ?
			UNION ALL
			SELECT d.id, s.depth + 1
			FROM directories d JOIN sub s ON d.parent_id = s.id
		)
		SELECT id FROM sub ORDER BY depth DESC, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtree: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var dirID int64
		if err := rows.Scan(&dirID); err != nil {
			return nil, fmt.Errorf("failed to scan subtree: %w", err)
		}
		ids = append(ids, dirID)
	}

	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDirectory(row rowScanner) (*Directory, error) {
	var d Directory
	var parentID sql.NullInt64
	err := row.Scan(&d.ID, &parentID, &d.Path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.ParentID = parentID.Int64
	return &d, nil
}

package store

// Schema v1 - library index
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Directory tree. path is a single segment, except for the root whose
-- path is the configured library base path.
CREATE TABLE IF NOT EXISTS directories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  parent_id INTEGER REFERENCES directories(id) ON DELETE RESTRICT,
  path TEXT NOT NULL,
  UNIQUE (parent_id, path)
);

-- NULLs are distinct in UNIQUE constraints, so the single root needs its own index
CREATE UNIQUE INDEX IF NOT EXISTS idx_directories_root ON directories((parent_id IS NULL)) WHERE parent_id IS NULL;

CREATE TABLE IF NOT EXISTS artists (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  norm_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS albums (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  norm_name TEXT NOT NULL,
  albumartist_id INTEGER REFERENCES artists(id) ON DELETE RESTRICT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_albums_key ON albums(norm_name, IFNULL(albumartist_id, 0));

CREATE TABLE IF NOT EXISTS genres (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);

-- Tag snapshot; rows are never updated after insert
CREATE TABLE IF NOT EXISTS metadata (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  track INTEGER,
  track_total INTEGER,
  title TEXT,
  artist_id INTEGER REFERENCES artists(id) ON DELETE SET NULL,
  album_id INTEGER REFERENCES albums(id) ON DELETE SET NULL,
  year INTEGER,
  genre_id INTEGER REFERENCES genres(id) ON DELETE SET NULL,
  duration REAL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  directory_id INTEGER NOT NULL REFERENCES directories(id) ON DELETE RESTRICT,
  filename TEXT NOT NULL,
  meta_indexed_at DATETIME,
  meta_data_id INTEGER REFERENCES metadata(id) ON DELETE SET NULL,
  UNIQUE (directory_id, filename)
);

CREATE INDEX IF NOT EXISTS idx_files_meta_indexed_at ON files(meta_indexed_at);
CREATE INDEX IF NOT EXISTS idx_files_meta_data_id ON files(meta_data_id);
CREATE INDEX IF NOT EXISTS idx_metadata_artist ON metadata(artist_id);
CREATE INDEX IF NOT EXISTS idx_metadata_album ON metadata(album_id);
`

// Schema v2 - online artwork lookup cache
const schemaV2 = `
CREATE TABLE IF NOT EXISTS artwork_lookups (
  keywords TEXT PRIMARY KEY,
  release_mbid TEXT,       -- NULL records a search that found nothing
  cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  hit_count INTEGER DEFAULT 0
);
`

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default Store backend, grounded on the table
// layout and transactional bulk-insert style of Prayush09-MusicRecognition's
// db/postgres.go, adapted to sqlite's dialect (AUTOINCREMENT, no ANY($1)).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates, if absent) the sqlite database at path and
// ensures its schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver serializes writers; avoid SQLITE_BUSY storms

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	const tracks = `
	CREATE TABLE IF NOT EXISTS tracks (
		track_id      INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id   TEXT NOT NULL UNIQUE,
		title         TEXT NOT NULL,
		artist        TEXT,
		thumbnail_url TEXT
	);`
	const fingerprints = `
	CREATE TABLE IF NOT EXISTS fingerprints (
		fingerprint_id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash_value     INTEGER NOT NULL,
		anchor_time    INTEGER NOT NULL,
		track_id       INTEGER NOT NULL REFERENCES tracks(track_id)
	);`
	const hashIdx = `CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints (hash_value);`
	const trackIdx = `CREATE INDEX IF NOT EXISTS idx_fingerprints_track ON fingerprints (track_id);`

	for _, stmt := range []string{tracks, fingerprints, hashIdx, trackIdx} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// InsertTrack inserts the track row and its fingerprint rows in one
// transaction, matching on the database's unique constraint (not an
// in-memory lock) so concurrent duplicate inserts resolve to exactly one
// winner, per spec §4.5's ordering guarantee.
func (s *SQLiteStore) InsertTrack(ctx context.Context, externalID, title, artist, thumbnailURL string, fingerprints []Fingerprint) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tracks (external_id, title, artist, thumbnail_url) VALUES (?, ?, ?, ?)`,
		externalID, title, artist, thumbnailURL)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateExternalID
		}
		return 0, err
	}
	trackID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	const batchSize = 500
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fingerprints (hash_value, anchor_time, track_id) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i := 0; i < len(fingerprints); i += batchSize {
		end := i + batchSize
		if end > len(fingerprints) {
			end = len(fingerprints)
		}
		for _, fp := range fingerprints[i:end] {
			if _, err := stmt.ExecContext(ctx, fp.HashValue, fp.AnchorTime, trackID); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return trackID, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// LookupHashes performs one IN-clause query per batch to stay within
// sqlite's default bound-parameter limit.
func (s *SQLiteStore) LookupHashes(ctx context.Context, hashes []uint32) ([]HashHit, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	unique := dedupeHashes(hashes)

	const batchSize = 900
	var hits []HashHit
	for i := 0; i < len(unique); i += batchSize {
		end := i + batchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[i:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for j, h := range batch {
			args[j] = h
		}

		query := fmt.Sprintf(`SELECT hash_value, anchor_time, track_id FROM fingerprints WHERE hash_value IN (%s)`, placeholders)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var h HashHit
			if err := rows.Scan(&h.HashValue, &h.AnchorTime, &h.TrackID); err != nil {
				rows.Close()
				return nil, err
			}
			hits = append(hits, h)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return hits, nil
}

func dedupeHashes(hashes []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(hashes))
	out := make([]uint32, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func (s *SQLiteStore) GetTrack(ctx context.Context, trackID int64) (Track, error) {
	var t Track
	var artist, thumb sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT track_id, external_id, title, artist, thumbnail_url FROM tracks WHERE track_id = ?`, trackID,
	).Scan(&t.TrackID, &t.ExternalID, &t.Title, &artist, &thumb)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrTrackNotFound
	}
	if err != nil {
		return Track{}, err
	}
	t.Artist = artist.String
	t.ThumbnailURL = thumb.String
	return t, nil
}

func (s *SQLiteStore) ListTracks(ctx context.Context, offset, limit int) (int, []Track, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id, external_id, title, artist, thumbnail_url FROM tracks ORDER BY track_id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		var artist, thumb sql.NullString
		if err := rows.Scan(&t.TrackID, &t.ExternalID, &t.Title, &artist, &thumb); err != nil {
			return 0, nil, err
		}
		t.Artist = artist.String
		t.ThumbnailURL = thumb.String
		tracks = append(tracks, t)
	}
	return total, tracks, rows.Err()
}

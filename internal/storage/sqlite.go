package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"hlckv/internal/hlc"

	_ "modernc.org/sqlite"
)

// ErrPhysicalRange is returned when a version's physical component does not
// fit SQLite's signed 64-bit INTEGER column.
var ErrPhysicalRange = errors.New("storage: physical time out of range for sqlite")

// SQLiteStore persists versioned values in a SQLite database in WAL mode.
// Writes use a conditional upsert so last-writer-wins is decided inside the
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key      TEXT PRIMARY KEY,
		value    BLOB,
		physical INTEGER NOT NULL,
		logical  INTEGER NOT NULL,
		origin   TEXT NOT NULL DEFAULT '',
		deleted  INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_kv_version ON kv(physical, logical);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get retrieves a value by key, tombstones included.
func (s *SQLiteStore) Get(key string) (*VersionedValue, error) {
	var (
		vv       VersionedValue
		physical int64
		logical  int64
		deleted  int
	)
	err := s.db.QueryRow(
		`SELECT value, physical, logical, origin, deleted FROM kv WHERE key = ?`, key,
	).Scan(&vv.Value, &physical, &logical, &vv.Origin, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	vv.Version = hlc.NewTimestampWithLogical(uint64(physical), uint32(logical))
	vv.Deleted = deleted != 0
	return &vv, nil
}

// Apply stores vv if it supersedes the current row for key.
func (s *SQLiteStore) Apply(key string, vv VersionedValue) (bool, error) {
	if vv.Version.Physical > math.MaxInt64 {
		return false, fmt.Errorf("%w: %d", ErrPhysicalRange, vv.Version.Physical)
	}

	value := vv.Value
	if vv.Deleted {
		value = nil
	}
	deleted := 0
	if vv.Deleted {
		deleted = 1
	}

	var applied bool
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`INSERT INTO kv (key, value, physical, logical, origin, deleted)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET
			   value = excluded.value,
			   physical = excluded.physical,
			   logical = excluded.logical,
			   origin = excluded.origin,
			   deleted = excluded.deleted
			 WHERE (excluded.physical, excluded.logical, excluded.origin) > (kv.physical, kv.logical, kv.origin)`,
			key, value, int64(vv.Version.Physical), int64(vv.Version.Logical), vv.Origin, deleted,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		applied = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply %q: %w", key, err)
	}
	return applied, nil
}

// MaxVersion returns the highest version stored, or the zero timestamp.
func (s *SQLiteStore) MaxVersion() (hlc.Timestamp, error) {
	var physical, logical int64
	err := s.db.QueryRow(
		`SELECT physical, logical FROM kv ORDER BY physical DESC, logical DESC LIMIT 1`,
	).Scan(&physical, &logical)
	if errors.Is(err, sql.ErrNoRows) {
		return hlc.Timestamp{}, nil
	}
	if err != nil {
		return hlc.Timestamp{}, fmt.Errorf("max version: %w", err)
	}
	return hlc.NewTimestampWithLogical(uint64(physical), uint32(logical)), nil
}

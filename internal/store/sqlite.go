// Package store keeps cipher names, key types, generated keys, source texts
// and corpus files in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rmathena79/breaker-bot/internal/cipher"
)

const schema = `
CREATE TABLE IF NOT EXISTS cipher_names (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS key_types (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS keys (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ref         TEXT NOT NULL UNIQUE,
    cipher_id   INTEGER NOT NULL REFERENCES cipher_names(id),
    key_type_id INTEGER NOT NULL REFERENCES key_types(id),
    value       TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    UNIQUE (cipher_id, value)
);

CREATE TABLE IF NOT EXISTS sources (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL UNIQUE,
    url         TEXT,
    ebook_id    TEXT
);

CREATE TABLE IF NOT EXISTS files (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    path        TEXT NOT NULL UNIQUE,
    kind        TEXT NOT NULL,
    source_id   INTEGER REFERENCES sources(id),
    cipher_id   INTEGER REFERENCES cipher_names(id),
    key_id      INTEGER REFERENCES keys(id),
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_kind ON files(kind, source_id);
`

// SQLite is the Repository backed by a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema. Use
// ":memory:" for a throwaway database.
func Open(path string) (*SQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = path + "?_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) CipherID(ctx context.Context, name string) (int64, error) {
	return s.idByName(ctx, "cipher_names", "cipher", name)
}

func (s *SQLite) AddCipher(ctx context.Context, name string) (int64, error) {
	return s.insertName(ctx, "cipher_names", "cipher", name)
}

func (s *SQLite) KeyTypeID(ctx context.Context, name string) (int64, error) {
	return s.idByName(ctx, "key_types", "key type", name)
}

func (s *SQLite) AddKeyType(ctx context.Context, name string) (int64, error) {
	return s.insertName(ctx, "key_types", "key type", name)
}

// Seed records every given cipher and its key type, skipping existing rows.
func (s *SQLite) Seed(ctx context.Context, ciphers []cipher.Cipher) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range ciphers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO cipher_names (name) VALUES (?)`, c.DisplayName()); err != nil {
			return fmt.Errorf("seed cipher %s: %w", c.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO key_types (name) VALUES (?)`, string(c.KeyKind())); err != nil {
			return fmt.Errorf("seed key type %s: %w", c.KeyKind(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) SourceByTitle(ctx context.Context, title string) (Source, error) {
	var src Source
	var url, ebook sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, title, url, ebook_id FROM sources WHERE title = ?`, title).
		Scan(&src.ID, &src.Title, &url, &ebook)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, fmt.Errorf("source %q: %w", title, ErrNotFound)
		}
		return Source{}, fmt.Errorf("get source: %w", err)
	}
	src.URL, src.EbookID = url.String, ebook.String
	return src, nil
}

func (s *SQLite) AddSource(ctx context.Context, src Source) (int64, error) {
	if strings.TrimSpace(src.Title) == "" {
		return 0, errors.New("source title is required")
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO sources (title, url, ebook_id) VALUES (?, ?, ?)`,
		src.Title, nullString(src.URL), nullString(src.EbookID))
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	return result.LastInsertId()
}

// AddKey stores a key for a recorded cipher and key type and gives it a new
// ref. Both names may be registry or display names.
func (s *SQLite) AddKey(ctx context.Context, cipherName, keyType, value string) (Key, error) {
	cipherID, err := s.CipherID(ctx, canonicalCipher(cipherName))
	if err != nil {
		return Key{}, err
	}
	keyTypeID, err := s.KeyTypeID(ctx, keyType)
	if err != nil {
		return Key{}, err
	}

	k := Key{
		Ref:       uuid.NewString(),
		Cipher:    canonicalCipher(cipherName),
		KeyType:   keyType,
		Value:     value,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO keys (ref, cipher_id, key_type_id, value, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		k.Ref, cipherID, keyTypeID, k.Value, k.CreatedAt.Unix(),
	)
	if err != nil {
		return Key{}, fmt.Errorf("insert key: %w", err)
	}
	if k.ID, err = result.LastInsertId(); err != nil {
		return Key{}, fmt.Errorf("get last insert id: %w", err)
	}
	return k, nil
}

const keyColumns = `
	SELECT k.id, k.ref, c.name, t.name, k.value, k.created_at
	FROM keys k
	JOIN cipher_names c ON c.id = k.cipher_id
	JOIN key_types t ON t.id = k.key_type_id`

func (s *SQLite) KeyByRef(ctx context.Context, ref string) (Key, error) {
	keys, err := s.queryKeys(ctx, keyColumns+` WHERE k.ref = ?`, ref)
	if err != nil {
		return Key{}, err
	}
	if len(keys) == 0 {
		return Key{}, fmt.Errorf("key %s: %w", ref, ErrNotFound)
	}
	return keys[0], nil
}

func (s *SQLite) ListKeys(ctx context.Context, filter KeyFilter) ([]Key, error) {
	query := keyColumns + ` WHERE 1 = 1`
	var args []any
	if filter.Cipher != "" {
		query += ` AND c.name = ?`
		args = append(args, canonicalCipher(filter.Cipher))
	}
	if filter.KeyType != "" {
		query += ` AND t.name = ?`
		args = append(args, filter.KeyType)
	}
	return s.queryKeys(ctx, query+` ORDER BY k.id`, args...)
}

// KeyUsed reports whether value was already stored for the cipher. It lets
// cipher.GenerateUniqueKey consult the database.
func (s *SQLite) KeyUsed(ctx context.Context, cipherName, value string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM keys k
		JOIN cipher_names c ON c.id = k.cipher_id
		WHERE c.name = ? AND k.value = ?`, canonicalCipher(cipherName), value,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check key usage: %w", err)
	}
	return n > 0, nil
}

func (s *SQLite) AddFile(ctx context.Context, f File) (int64, error) {
	if strings.TrimSpace(f.Path) == "" {
		return 0, errors.New("file path is required")
	}
	var cipherID, keyID, sourceID sql.NullInt64
	if f.SourceID != 0 {
		sourceID = sql.NullInt64{Int64: f.SourceID, Valid: true}
	}
	if f.Cipher != "" {
		id, err := s.CipherID(ctx, canonicalCipher(f.Cipher))
		if err != nil {
			return 0, err
		}
		cipherID = sql.NullInt64{Int64: id, Valid: true}
	}
	if f.KeyRef != "" {
		k, err := s.KeyByRef(ctx, f.KeyRef)
		if err != nil {
			return 0, err
		}
		keyID = sql.NullInt64{Int64: k.ID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, kind, source_id, cipher_id, key_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.Path, string(f.Kind), sourceID, cipherID, keyID, s.now().UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	return result.LastInsertId()
}

func (s *SQLite) ListFiles(ctx context.Context, filter FileFilter) ([]File, error) {
	query := `
		SELECT f.id, f.path, f.kind, f.source_id, c.name, k.ref, f.created_at
		FROM files f
		LEFT JOIN cipher_names c ON c.id = f.cipher_id
		LEFT JOIN keys k ON k.id = f.key_id
		WHERE 1 = 1`
	var args []any
	if filter.Kind != "" {
		query += ` AND f.kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.SourceID != 0 {
		query += ` AND f.source_id = ?`
		args = append(args, filter.SourceID)
	}
	if filter.Cipher != "" {
		query += ` AND c.name = ?`
		args = append(args, canonicalCipher(filter.Cipher))
	}

	rows, err := s.db.QueryContext(ctx, query+` ORDER BY f.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var kind string
		var sourceID sql.NullInt64
		var cipherName, keyRef sql.NullString
		var created int64
		if err := rows.Scan(&f.ID, &f.Path, &kind, &sourceID, &cipherName, &keyRef, &created); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Kind = FileKind(kind)
		f.SourceID = sourceID.Int64
		f.Cipher, f.KeyRef = cipherName.String, keyRef.String
		f.CreatedAt = time.Unix(created, 0).UTC()
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLite) queryKeys(ctx context.Context, query string, args ...any) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		var created int64
		if err := rows.Scan(&k.ID, &k.Ref, &k.Cipher, &k.KeyType, &k.Value, &created); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		k.CreatedAt = time.Unix(created, 0).UTC()
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) idByName(ctx context.Context, table, what, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s %q: %w", what, name, ErrNotFound)
		}
		return 0, fmt.Errorf("get %s: %w", what, err)
	}
	return id, nil
}

func (s *SQLite) insertName(ctx context.Context, table, what, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%s name is required", what)
	}
	result, err := s.db.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	return result.LastInsertId()
}

// canonicalCipher maps registry names to the display names stored in the
// database, leaving unknown names untouched.
func canonicalCipher(name string) string {
	if c, ok := cipher.Get(name); ok {
		return c.DisplayName()
	}
	return name
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ Repository      = (*SQLite)(nil)
	_ cipher.KeyUsage = (*SQLite)(nil)
)

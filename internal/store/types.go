package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// FileKind tells raw, simplified and enciphered corpus files apart.
type FileKind string

const (
	FileRaw        FileKind = "raw"
	FileSimplified FileKind = "simplified"
	FileEncoded    FileKind = "encoded"
)

// Source is a text a corpus file was derived from.
type Source struct {
	ID      int64
	Title   string
	URL     string
	EbookID string
}

// Key is a stored cipher key in its textual form.
type Key struct {
	ID        int64
	Ref       string // stable external identifier
	Cipher    string
	KeyType   string
	Value     string
	CreatedAt time.Time
}

// File is a corpus file on disk.
type File struct {
	ID        int64
	Path      string
	Kind      FileKind
	SourceID  int64
	Cipher    string // empty for plaintext files
	KeyRef    string // empty for plaintext files
	CreatedAt time.Time
}

// KeyFilter narrows ListKeys. Zero fields match everything.
type KeyFilter struct {
	Cipher  string
	KeyType string
}

// FileFilter narrows ListFiles. Zero fields match everything.
type FileFilter struct {
	Kind     FileKind
	SourceID int64
	Cipher   string
}

// Repository is the persistence capability the corpus tooling needs.
type Repository interface {
	CipherID(ctx context.Context, name string) (int64, error)
	AddCipher(ctx context.Context, name string) (int64, error)
	KeyTypeID(ctx context.Context, name string) (int64, error)
	AddKeyType(ctx context.Context, name string) (int64, error)

	SourceByTitle(ctx context.Context, title string) (Source, error)
	AddSource(ctx context.Context, src Source) (int64, error)

	AddKey(ctx context.Context, cipherName, keyType, value string) (Key, error)
	KeyByRef(ctx context.Context, ref string) (Key, error)
	ListKeys(ctx context.Context, filter KeyFilter) ([]Key, error)
	KeyUsed(ctx context.Context, cipherName, value string) (bool, error)

	AddFile(ctx context.Context, f File) (int64, error)
	ListFiles(ctx context.Context, filter FileFilter) ([]File, error)

	Close() error
}

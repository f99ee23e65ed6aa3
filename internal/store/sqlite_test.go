package store

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmathena79/breaker-bot/internal/cipher"
)

func openSeeded(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "breakerbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), cipher.List()))
	return s
}

func TestOpenCreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening applies the schema again without error
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNamesLookup(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	id, err := s.CipherID(ctx, "Caesar Cipher")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.CipherID(ctx, "Enigma")
	assert.ErrorIs(t, err, ErrNotFound)

	added, err := s.AddCipher(ctx, "Enigma")
	require.NoError(t, err)
	got, err := s.CipherID(ctx, "Enigma")
	require.NoError(t, err)
	assert.Equal(t, added, got)

	_, err = s.AddCipher(ctx, "Enigma")
	assert.Error(t, err, "names are unique")
	_, err = s.AddCipher(ctx, "  ")
	assert.Error(t, err)

	_, err = s.KeyTypeID(ctx, string(cipher.KeyKindOffset))
	require.NoError(t, err)
	_, err = s.KeyTypeID(ctx, "Rotor Settings")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddKeyType(ctx, "Rotor Settings")
	require.NoError(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, s.Seed(context.Background(), cipher.List()))
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	_, err := s.SourceByTitle(ctx, "Emma")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.AddSource(ctx, Source{Title: "Emma", URL: "https://www.gutenberg.org/ebooks/158", EbookID: "158"})
	require.NoError(t, err)

	src, err := s.SourceByTitle(ctx, "Emma")
	require.NoError(t, err)
	assert.Equal(t, Source{ID: id, Title: "Emma", URL: "https://www.gutenberg.org/ebooks/158", EbookID: "158"}, src)

	_, err = s.AddSource(ctx, Source{})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	k, err := s.AddKey(ctx, "caesar", string(cipher.KeyKindOffset), "12")
	require.NoError(t, err)
	assert.NotEmpty(t, k.Ref)
	assert.Equal(t, "Caesar Cipher", k.Cipher)

	got, err := s.KeyByRef(ctx, k.Ref)
	require.NoError(t, err)
	assert.Equal(t, k, got)

	_, err = s.AddKey(ctx, "Caesar Cipher", string(cipher.KeyKindOffset), "12")
	assert.Error(t, err, "a key is stored once per cipher")

	_, err = s.AddKey(ctx, "substitution", string(cipher.KeyKindMap), "2,0,1")
	require.NoError(t, err)

	_, err = s.AddKey(ctx, "enigma", string(cipher.KeyKindOffset), "1")
	assert.ErrorIs(t, err, ErrNotFound)

	caesar, err := s.ListKeys(ctx, KeyFilter{Cipher: "caesar"})
	require.NoError(t, err)
	require.Len(t, caesar, 1)
	assert.Equal(t, "12", caesar[0].Value)

	all, err := s.ListKeys(ctx, KeyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	maps, err := s.ListKeys(ctx, KeyFilter{KeyType: string(cipher.KeyKindMap)})
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, "Substitution Cipher", maps[0].Cipher)

	_, err = s.KeyByRef(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	used, err := s.KeyUsed(ctx, "caesar", "12")
	require.NoError(t, err)
	assert.True(t, used)
	used, err = s.KeyUsed(ctx, "caesar", "13")
	require.NoError(t, err)
	assert.False(t, used)
}

func TestGenerateUniqueKeyAgainstStore(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)
	c, err := cipher.Lookup("caesar")
	require.NoError(t, err)

	for k := 1; k < 5; k++ {
		_, err := s.AddKey(ctx, c.Name(), string(c.KeyKind()), cipher.CaesarKey(k).String())
		require.NoError(t, err)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		k, err := cipher.GenerateUniqueKey(ctx, c, 8, rng, s, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(k.(cipher.CaesarKey)), 5)
	}
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	s := openSeeded(t)

	srcID, err := s.AddSource(ctx, Source{Title: "Persuasion"})
	require.NoError(t, err)
	key, err := s.AddKey(ctx, "caesar", string(cipher.KeyKindOffset), "7")
	require.NoError(t, err)

	_, err = s.AddFile(ctx, File{Path: "raw/persuasion.txt", Kind: FileRaw, SourceID: srcID})
	require.NoError(t, err)
	_, err = s.AddFile(ctx, File{Path: "simple/persuasion.txt", Kind: FileSimplified, SourceID: srcID})
	require.NoError(t, err)
	_, err = s.AddFile(ctx, File{Path: "enc/persuasion-7.txt", Kind: FileEncoded, SourceID: srcID, Cipher: "caesar", KeyRef: key.Ref})
	require.NoError(t, err)

	_, err = s.AddFile(ctx, File{Path: "enc/bad.txt", Kind: FileEncoded, KeyRef: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.AddFile(ctx, File{Kind: FileRaw})
	assert.Error(t, err)

	all, err := s.ListFiles(ctx, FileFilter{SourceID: srcID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	encoded, err := s.ListFiles(ctx, FileFilter{Kind: FileEncoded})
	require.NoError(t, err)
	require.Len(t, encoded, 1)
	assert.Equal(t, "Caesar Cipher", encoded[0].Cipher)
	assert.Equal(t, key.Ref, encoded[0].KeyRef)
	assert.Equal(t, srcID, encoded[0].SourceID)

	byCipher, err := s.ListFiles(ctx, FileFilter{Cipher: "Caesar Cipher"})
	require.NoError(t, err)
	assert.Len(t, byCipher, 1)

	raw, err := s.ListFiles(ctx, FileFilter{Kind: FileRaw})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Empty(t, raw[0].Cipher)
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.AddCipher(ctx, "Caesar Cipher")
	require.NoError(t, err)
	_, err = s.CipherID(ctx, "Caesar Cipher")
	assert.NoError(t, err)
}

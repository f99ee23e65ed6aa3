package cipher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

// CaesarKey is the shift applied to every offset.
type CaesarKey int

func (k CaesarKey) Kind() KeyKind { return KeyKindOffset }

func (k CaesarKey) String() string { return strconv.Itoa(int(k)) }

// Validate checks k against an alphabet of size n. A shift of 0 is the
// identity and is rejected.
func (k CaesarKey) Validate(n int) error {
	if int(k) < 1 || int(k) > n-1 {
		return fmt.Errorf("%w: caesar key %d not in [1, %d]", ErrKeyOutOfRange, int(k), n-1)
	}
	return nil
}

// GenerateCaesarKey returns a uniformly random key in [1, n-1].
func GenerateCaesarKey(rng Rand, n int) (CaesarKey, error) {
	if n < 2 {
		return 0, fmt.Errorf("%w: alphabet of size %d has no caesar keys", ErrKeyOutOfRange, n)
	}
	return CaesarKey(randOrDefault(rng).IntN(n-1) + 1), nil
}

// EncodeCaesar shifts every offset forward by key, modulo n.
func EncodeCaesar(offsets []int, key CaesarKey, n int) ([]int, error) {
	if err := key.Validate(n); err != nil {
		return nil, err
	}
	return shift(offsets, int(key), n)
}

// DecodeCaesar shifts every offset back by key, modulo n.
func DecodeCaesar(offsets []int, key CaesarKey, n int) ([]int, error) {
	if err := key.Validate(n); err != nil {
		return nil, err
	}
	return shift(offsets, n-int(key), n)
}

func shift(offsets []int, by, n int) ([]int, error) {
	if err := checkOffsets(offsets, n); err != nil {
		return nil, err
	}
	out := make([]int, len(offsets))
	for i, off := range offsets {
		out[i] = (off + by) % n
	}
	return out, nil
}

// Caesar adapts the Caesar functions to the Cipher interface.
type Caesar struct {
	BaseCipher
}

// NewCaesar returns the Caesar cipher.
func NewCaesar() *Caesar {
	return &Caesar{BaseCipher: BaseCipher{
		NameValue:        "caesar",
		DisplayNameValue: "Caesar Cipher",
		KeyKindValue:     KeyKindOffset,
		DescriptionValue: "Shift every symbol a fixed number of places along the alphabet",
	}}
}

func (c *Caesar) GenerateKey(rng Rand, n int) (Key, error) {
	return GenerateCaesarKey(rng, n)
}

func (c *Caesar) ValidateKey(key Key, n int) error {
	k, err := asCaesar(key)
	if err != nil {
		return err
	}
	return k.Validate(n)
}

func (c *Caesar) ParseKey(text string, set *charset.Set) (Key, error) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("parse caesar key %q: %w", text, err)
	}
	k := CaesarKey(v)
	if err := k.Validate(set.Size()); err != nil {
		return nil, err
	}
	return k, nil
}

func (c *Caesar) FormatKey(key Key, set *charset.Set) (string, error) {
	if err := c.ValidateKey(key, set.Size()); err != nil {
		return "", err
	}
	return key.String(), nil
}

func (c *Caesar) Encode(offsets []int, key Key, n int) ([]int, error) {
	k, err := asCaesar(key)
	if err != nil {
		return nil, err
	}
	return EncodeCaesar(offsets, k, n)
}

func (c *Caesar) Decode(offsets []int, key Key, n int) ([]int, error) {
	k, err := asCaesar(key)
	if err != nil {
		return nil, err
	}
	return DecodeCaesar(offsets, k, n)
}

// Keys lists every valid Caesar key for an alphabet of size n.
func (c *Caesar) Keys(n int) []Key {
	keys := make([]Key, 0, n-1)
	for k := 1; k < n; k++ {
		keys = append(keys, CaesarKey(k))
	}
	return keys
}

func asCaesar(key Key) (CaesarKey, error) {
	switch k := key.(type) {
	case CaesarKey:
		return k, nil
	case *CaesarKey:
		if k != nil {
			return *k, nil
		}
	}
	return 0, fmt.Errorf("%w: caesar cipher needs a %s key, got %T", ErrKeyMismatch, KeyKindOffset, key)
}

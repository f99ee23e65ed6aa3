package cipher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

// SubstitutionKey is a verified bijection over 0..N-1. The zero value is not a
// usable key; build one with NewSubstitutionKey.
type SubstitutionKey struct {
	forward []int
	inverse []int
}

// NewSubstitutionKey copies perm and checks that it is a permutation of
// 0..len(perm)-1.
func NewSubstitutionKey(perm []int) (SubstitutionKey, error) {
	n := len(perm)
	if n < 2 {
		return SubstitutionKey{}, fmt.Errorf("%w: length %d", ErrInvalidPermutation, n)
	}
	forward := make([]int, n)
	inverse := make([]int, n)
	for i := range inverse {
		inverse[i] = -1
	}
	for i, v := range perm {
		if v < 0 || v >= n {
			return SubstitutionKey{}, fmt.Errorf("%w: entry %d at index %d out of range", ErrInvalidPermutation, v, i)
		}
		if inverse[v] != -1 {
			return SubstitutionKey{}, fmt.Errorf("%w: entry %d repeated at indexes %d and %d", ErrInvalidPermutation, v, inverse[v], i)
		}
		forward[i] = v
		inverse[v] = i
	}
	return SubstitutionKey{forward: forward, inverse: inverse}, nil
}

// ShiftSubstitution returns the substitution key equivalent to a Caesar shift.
func ShiftSubstitution(n, shift int) (SubstitutionKey, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = ((i+shift)%n + n) % n
	}
	return NewSubstitutionKey(perm)
}

func (k SubstitutionKey) Kind() KeyKind { return KeyKindMap }

// Len returns the alphabet size the key was built for.
func (k SubstitutionKey) Len() int { return len(k.forward) }

// Permutation returns a copy of the forward mapping.
func (k SubstitutionKey) Permutation() []int {
	return append([]int(nil), k.forward...)
}

// String renders the forward mapping as comma separated offsets.
func (k SubstitutionKey) String() string {
	parts := make([]string, len(k.forward))
	for i, v := range k.forward {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Validate checks that the key was built for an alphabet of size n.
func (k SubstitutionKey) Validate(n int) error {
	if len(k.forward) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidPermutation)
	}
	if len(k.forward) != n {
		return fmt.Errorf("%w: key length %d, alphabet size %d", ErrInvalidPermutation, len(k.forward), n)
	}
	return nil
}

// GenerateSubstitutionKey returns a uniformly random permutation of 0..n-1.
func GenerateSubstitutionKey(rng Rand, n int) (SubstitutionKey, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	randOrDefault(rng).Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	return NewSubstitutionKey(perm)
}

// EncodeSubstitution replaces every offset o with key[o].
func EncodeSubstitution(offsets []int, key SubstitutionKey) ([]int, error) {
	return substitute(offsets, key, key.forward)
}

// DecodeSubstitution applies the inverse permutation.
func DecodeSubstitution(offsets []int, key SubstitutionKey) ([]int, error) {
	return substitute(offsets, key, key.inverse)
}

func substitute(offsets []int, key SubstitutionKey, table []int) ([]int, error) {
	if err := key.Validate(len(table)); err != nil {
		return nil, err
	}
	if err := checkOffsets(offsets, len(table)); err != nil {
		return nil, err
	}
	out := make([]int, len(offsets))
	for i, off := range offsets {
		out[i] = table[off]
	}
	return out, nil
}

// Substitution adapts the substitution functions to the Cipher interface.
type Substitution struct {
	BaseCipher
}

// NewSubstitution returns the general substitution cipher.
func NewSubstitution() *Substitution {
	return &Substitution{BaseCipher: BaseCipher{
		NameValue:        "substitution",
		DisplayNameValue: "Substitution Cipher",
		KeyKindValue:     KeyKindMap,
		DescriptionValue: "Replace every symbol through a fixed permutation of the alphabet",
	}}
}

func (s *Substitution) GenerateKey(rng Rand, n int) (Key, error) {
	return GenerateSubstitutionKey(rng, n)
}

func (s *Substitution) ValidateKey(key Key, n int) error {
	k, err := asSubstitution(key)
	if err != nil {
		return err
	}
	return k.Validate(n)
}

// ParseKey reads a character map: the alphabet rearranged so that the symbol
// at position i is the replacement for offset i.
func (s *Substitution) ParseKey(text string, set *charset.Set) (Key, error) {
	runes := []rune(text)
	if len(runes) != set.Size() {
		return nil, fmt.Errorf("%w: character map has %d symbols, alphabet has %d", ErrInvalidPermutation, len(runes), set.Size())
	}
	perm := make([]int, len(runes))
	for i, r := range runes {
		off, ok := set.Offset(r)
		if !ok {
			return nil, fmt.Errorf("%w: %q at index %d is not in the alphabet", ErrInvalidPermutation, r, i)
		}
		perm[i] = off
	}
	return NewSubstitutionKey(perm)
}

func (s *Substitution) FormatKey(key Key, set *charset.Set) (string, error) {
	k, err := asSubstitution(key)
	if err != nil {
		return "", err
	}
	if err := k.Validate(set.Size()); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, off := range k.forward {
		r, err := set.Symbol(off)
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func (s *Substitution) Encode(offsets []int, key Key, n int) ([]int, error) {
	k, err := asSubstitution(key)
	if err != nil {
		return nil, err
	}
	if err := k.Validate(n); err != nil {
		return nil, err
	}
	return EncodeSubstitution(offsets, k)
}

func (s *Substitution) Decode(offsets []int, key Key, n int) ([]int, error) {
	k, err := asSubstitution(key)
	if err != nil {
		return nil, err
	}
	if err := k.Validate(n); err != nil {
		return nil, err
	}
	return DecodeSubstitution(offsets, k)
}

func asSubstitution(key Key) (SubstitutionKey, error) {
	switch k := key.(type) {
	case SubstitutionKey:
		return k, nil
	case *SubstitutionKey:
		if k != nil {
			return *k, nil
		}
	}
	return SubstitutionKey{}, fmt.Errorf("%w: substitution cipher needs a %s key, got %T", ErrKeyMismatch, KeyKindMap, key)
}

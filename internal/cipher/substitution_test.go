package cipher

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

func TestNewSubstitutionKeyValidation(t *testing.T) {
	tests := []struct {
		name string
		perm []int
	}{
		{"empty", nil},
		{"too short", []int{0}},
		{"duplicate", []int{0, 1, 1, 3}},
		{"negative", []int{0, -1, 2}},
		{"out of range", []int{0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSubstitutionKey(tt.perm); !errors.Is(err, ErrInvalidPermutation) {
				t.Fatalf("expected ErrInvalidPermutation, got %v", err)
			}
		})
	}
}

func TestSubstitutionKeyIsCopied(t *testing.T) {
	perm := []int{2, 0, 1}
	key, err := NewSubstitutionKey(perm)
	if err != nil {
		t.Fatalf("NewSubstitutionKey: %v", err)
	}
	perm[0] = 0
	if got := key.Permutation(); got[0] != 2 {
		t.Fatalf("key must not alias caller's slice, got %v", got)
	}
	if key.String() != "2,0,1" {
		t.Errorf("unexpected String(): %q", key.String())
	}
}

func TestSubstitutionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	codec := charset.NewCodec(charset.Default)
	plain, _ := codec.Encode("SPHINX OF BLACK QUARTZ, JUDGE MY VOW.\n")

	for i := 0; i < 50; i++ {
		key, err := GenerateSubstitutionKey(rng, codec.Size())
		if err != nil {
			t.Fatalf("GenerateSubstitutionKey: %v", err)
		}
		enc, err := EncodeSubstitution(plain, key)
		if err != nil {
			t.Fatalf("EncodeSubstitution: %v", err)
		}
		dec, err := DecodeSubstitution(enc, key)
		if err != nil {
			t.Fatalf("DecodeSubstitution: %v", err)
		}
		if diff := cmp.Diff(plain, dec); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestShiftSubstitutionMatchesCaesar(t *testing.T) {
	engine := NewEngine(charset.NewCodec(charset.Default))
	key, err := ShiftSubstitution(charset.Default.Size(), 3)
	if err != nil {
		t.Fatalf("ShiftSubstitution: %v", err)
	}

	viaSubst, err := engine.EncodeText("substitution", "ABCDEFG\n", key)
	if err != nil {
		t.Fatalf("substitution encode: %v", err)
	}
	viaCaesar, err := engine.EncodeText("caesar", "ABCDEFG\n", CaesarKey(3))
	if err != nil {
		t.Fatalf("caesar encode: %v", err)
	}
	if viaSubst != viaCaesar || viaSubst != "DEFGHIJC" {
		t.Errorf("expected identical ciphertext DEFGHIJC, got %q and %q", viaSubst, viaCaesar)
	}
}

func TestSubstitutionWrongAlphabetSize(t *testing.T) {
	key, _ := NewSubstitutionKey([]int{1, 0})
	c := NewSubstitution()
	if _, err := c.Encode([]int{0, 1}, key, 64); !errors.Is(err, ErrInvalidPermutation) {
		t.Fatalf("expected ErrInvalidPermutation for size mismatch, got %v", err)
	}
	if _, err := EncodeSubstitution([]int{0, 2}, key); !errors.Is(err, charset.ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if _, err := EncodeSubstitution([]int{0}, SubstitutionKey{}); !errors.Is(err, ErrInvalidPermutation) {
		t.Fatalf("zero value key must be rejected, got %v", err)
	}
}

func TestSubstitutionCharacterMap(t *testing.T) {
	set := charset.MustNew("ABCD")
	c := NewSubstitution()

	key, err := c.ParseKey("CADB", set)
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if diff := cmp.Diff([]int{2, 0, 3, 1}, key.(SubstitutionKey).Permutation()); diff != "" {
		t.Errorf("permutation mismatch (-want +got):\n%s", diff)
	}

	text, err := c.FormatKey(key, set)
	if err != nil || text != "CADB" {
		t.Errorf("FormatKey: got %q, %v", text, err)
	}

	for _, bad := range []string{"CAD", "CADC", "CADX"} {
		if _, err := c.ParseKey(bad, set); !errors.Is(err, ErrInvalidPermutation) {
			t.Errorf("%q: expected ErrInvalidPermutation, got %v", bad, err)
		}
	}
}

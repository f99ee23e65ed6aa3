package cipher

import (
	"context"
	"fmt"
)

// DefaultMaxAttempts bounds the resampling loop in GenerateUniqueKey.
const DefaultMaxAttempts = 1000

// KeyUsage reports whether a key has already been handed out for a cipher.
type KeyUsage interface {
	KeyUsed(ctx context.Context, cipherName, key string) (bool, error)
}

// KeyUsageFunc adapts a function to KeyUsage.
type KeyUsageFunc func(ctx context.Context, cipherName, key string) (bool, error)

func (f KeyUsageFunc) KeyUsed(ctx context.Context, cipherName, key string) (bool, error) {
	return f(ctx, cipherName, key)
}

// GenerateUniqueKey returns a key for c that usage has not seen yet.
//
// Ciphers with an enumerable key space pick uniformly among the unused keys
// and fail with ErrKeySpaceExhausted once none are left. Other ciphers are
// resampled at most maxAttempts times (DefaultMaxAttempts when <= 0).
func GenerateUniqueKey(ctx context.Context, c Cipher, n int, rng Rand, usage KeyUsage, maxAttempts int) (Key, error) {
	if usage == nil {
		return c.GenerateKey(rng, n)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if finite, ok := c.(FiniteKeySpace); ok {
		all := finite.Keys(n)
		unused := make([]Key, 0, len(all))
		for _, k := range all {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			used, err := usage.KeyUsed(ctx, c.Name(), k.String())
			if err != nil {
				return nil, fmt.Errorf("check key usage: %w", err)
			}
			if !used {
				unused = append(unused, k)
			}
		}
		if len(unused) == 0 {
			return nil, fmt.Errorf("%w: all %d %s keys are in use", ErrKeySpaceExhausted, len(all), c.Name())
		}
		return unused[randOrDefault(rng).IntN(len(unused))], nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k, err := c.GenerateKey(rng, n)
		if err != nil {
			return nil, err
		}
		used, err := usage.KeyUsed(ctx, c.Name(), k.String())
		if err != nil {
			return nil, fmt.Errorf("check key usage: %w", err)
		}
		if !used {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: no unused %s key after %d attempts", ErrKeySpaceExhausted, c.Name(), maxAttempts)
}

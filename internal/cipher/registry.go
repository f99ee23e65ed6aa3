package cipher

import (
	"fmt"
	"sort"
	"sync"
)

// Global cipher registry
var (
	ciphersRegistry = make(map[string]Cipher)
	registryMu      sync.RWMutex
)

func init() {
	for _, c := range builtins() {
		if err := Register(c); err != nil {
			panic(err)
		}
	}
}

func builtins() []Cipher {
	return []Cipher{NewIdentity(), NewCaesar(), NewSubstitution()}
}

// Register adds a cipher to the global registry
func Register(c Cipher) error {
	if c == nil {
		return fmt.Errorf("cannot register nil cipher")
	}

	name := c.Name()
	if name == "" {
		return fmt.Errorf("cipher name cannot be empty")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := ciphersRegistry[name]; exists {
		return fmt.Errorf("cipher %s is already registered", name)
	}

	ciphersRegistry[name] = c
	return nil
}

// Get retrieves a cipher by registry name or display name
func Get(name string) (Cipher, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if c, exists := ciphersRegistry[name]; exists {
		return c, true
	}
	for _, c := range ciphersRegistry {
		if c.DisplayName() == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup is Get with an ErrUnknownCipher error for missing names
func Lookup(name string) (Cipher, error) {
	c, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
	return c, nil
}

// List returns all registered ciphers sorted by name
func List() []Cipher {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ciphers := make([]Cipher, 0, len(ciphersRegistry))
	for _, c := range ciphersRegistry {
		ciphers = append(ciphers, c)
	}

	sort.Slice(ciphers, func(i, j int) bool {
		return ciphers[i].Name() < ciphers[j].Name()
	})

	return ciphers
}

// ListByKeyKind returns ciphers filtered by key shape
func ListByKeyKind(kind KeyKind) []Cipher {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ciphers := make([]Cipher, 0)
	for _, c := range ciphersRegistry {
		if c.KeyKind() == kind {
			ciphers = append(ciphers, c)
		}
	}

	sort.Slice(ciphers, func(i, j int) bool {
		return ciphers[i].Name() < ciphers[j].Name()
	})

	return ciphers
}

// Unregister removes a cipher from the registry (mainly for testing)
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(ciphersRegistry, name)
}

// ResetRegistry restores the built-in ciphers and drops everything else (mainly for testing)
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()

	ciphersRegistry = make(map[string]Cipher)
	for _, c := range builtins() {
		ciphersRegistry[c.Name()] = c
	}
}

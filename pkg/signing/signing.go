// Package signing holds the inventory of signing identities descriptors may
// reference. Identities are opaque: only their names are checked.
package signing

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DebugIdentity is the identity every toolchain provides implicitly.
const DebugIdentity = "debug"

// Identity is a named signing identity.
type Identity struct {
	// Name is the reference used by descriptors.
	Name string `yaml:"name" validate:"required"`

	// Store is an opaque reference to the key store.
	Store string `yaml:"store,omitempty"`

	// Alias is the key alias inside the store.
	Alias string `yaml:"alias,omitempty"`
}

// file is the YAML layout of a keystore inventory.
type file struct {
	Identities []Identity `yaml:"identities" validate:"dive"`
}

// Set is an immutable set of identities keyed by name.
type Set struct {
	byName map[string]Identity
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewSet builds a set from identities. Names must be unique; the debug
// identity is added when absent.
func NewSet(identities ...Identity) (*Set, error) {
	s := &Set{byName: make(map[string]Identity, len(identities)+1)}
	for _, id := range identities {
		if err := validate.Struct(&id); err != nil {
			return nil, fmt.Errorf("invalid signing identity: %w", err)
		}
		if _, dup := s.byName[id.Name]; dup {
			return nil, fmt.Errorf("signing identity %q declared more than once", id.Name)
		}
		s.byName[id.Name] = id
	}
	if _, ok := s.byName[DebugIdentity]; !ok {
		s.byName[DebugIdentity] = Identity{Name: DebugIdentity}
	}
	return s, nil
}

// DefaultSet returns a set holding only the debug identity.
func DefaultSet() *Set {
	s, _ := NewSet()
	return s
}

// Parse decodes a YAML keystore inventory:
//
//	identities:
//	  - name: upload
//	    store: keystores/upload.jks
//	    alias: upload
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse keystore YAML: %w", err)
	}
	return NewSet(f.Identities...)
}

// LoadFile reads a keystore inventory from path.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Has reports whether name is a known identity.
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byName[name]
	return ok
}

// Get returns the identity called name.
func (s *Set) Get(name string) (Identity, bool) {
	if s == nil {
		return Identity{}, false
	}
	id, ok := s.byName[name]
	return id, ok
}

// Names returns the identity names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

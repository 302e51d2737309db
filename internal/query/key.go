package query

import "strings"

// Key identifies a remote collection: an entity name followed by filter
// parameters, e.g. {"cards", "deck=d1"}. Keys compare element-wise.
type Key []string

// NewKey builds a key from its parts.
func NewKey(parts ...string) Key {
	return Key(append([]string(nil), parts...))
}

// Entity returns the first part of the key, or "" for an empty key.
func (k Key) Entity() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// String returns the canonical display form, e.g. "cards|deck=d1".
func (k Key) String() string {
	return strings.Join(k, "|")
}

// Equal reports element-wise equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix's parts are a leading subsequence of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share storage with k.
func (k Key) Clone() Key {
	return NewKey(k...)
}

// id is the map key. The separator cannot appear in practical parts.
func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

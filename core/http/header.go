package http

import (
	"sort"
	"strings"
)

// Header is a case-insensitive header map. Keys are stored lower-cased.
type Header map[string]string

// CanonicalKey returns the normalized form used for header keys.
func CanonicalKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the value for key, or "" if absent.
func (h Header) Get(key string) string {
	return h[CanonicalKey(key)]
}

// Lookup returns the value for key and whether it was present.
func (h Header) Lookup(key string) (string, bool) {
	v, ok := h[CanonicalKey(key)]
	return v, ok
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	_, ok := h[CanonicalKey(key)]
	return ok
}

// Set sets key to value, replacing any existing value.
func (h Header) Set(key, value string) {
	h[CanonicalKey(key)] = value
}

// SetDefault sets key to value only if key is not already present.
func (h Header) SetDefault(key, value string) {
	k := CanonicalKey(key)
	if _, ok := h[k]; !ok {
		h[k] = value
	}
}

// Del removes key.
func (h Header) Del(key string) {
	delete(h, CanonicalKey(key))
}

// Keys returns the header keys in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

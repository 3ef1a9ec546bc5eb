// Package toon implements the flat key=value;key=value record format accepted
// by the relay as an alternative to JSON request bodies.
package toon

import (
	"strings"

	"github.com/pkg/errors"
)

// Well-known keys.
const (
	KeyQuestion = "Q"
	KeyLocale   = "L"
)

const (
	pairSep = ";"
	kvSep   = "="
)

var ErrUnencodable = errors.New("toon: record cannot be encoded")

// Record is an ordered set of string pairs. Setting an existing key replaces
// its value but keeps the position of the first occurrence.
type Record struct {
	keys   []string
	values map[string]string
}

func (r *Record) Get(key string) (string, bool) {
	if r == nil || r.values == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Decode parses raw into a Record. It never fails: parts without "=" or with
// an empty key are skipped, and later duplicates overwrite earlier ones.
func Decode(raw string) *Record {
	r := &Record{}
	if strings.TrimSpace(raw) == "" {
		return r
	}
	for _, part := range strings.Split(raw, pairSep) {
		k, v, ok := strings.Cut(part, kvSep)
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		r.Set(k, strings.TrimSpace(v))
	}
	return r
}

// Encode is the inverse of Decode for records whose keys contain neither
// separator and whose values contain no ";". Surrounding whitespace is not
// preserved by Decode, so it is rejected as well.
func Encode(r *Record) (string, error) {
	if r.Len() == 0 {
		return "", nil
	}
	parts := make([]string, 0, r.Len())
	for _, k := range r.keys {
		v := r.values[k]
		if k == "" || strings.ContainsAny(k, pairSep+kvSep) || k != strings.TrimSpace(k) {
			return "", errors.Wrapf(ErrUnencodable, "key %q", k)
		}
		if strings.Contains(v, pairSep) || v != strings.TrimSpace(v) {
			return "", errors.Wrapf(ErrUnencodable, "value for key %q", k)
		}
		parts = append(parts, k+kvSep+v)
	}
	return strings.Join(parts, pairSep), nil
}

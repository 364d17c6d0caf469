package model

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/zeebo/xxh3"
)

var ErrUnhashableKey = errors.New("unhashable key")

// Key is a fingerprint of a cache key: v addresses the container, hi/lo guard against collisions.
type Key struct {
	v  uint64
	hi uint64
	lo uint64
}

// NewKey hashes the given parts in order. Every part is tagged with its dynamic type.
func NewKey(parts ...any) (*Key, error) {
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()
	defer hasherPool.Put(hasher)

	enc := newKeyEncoder(hasher)
	for _, part := range parts {
		if err := enc.encode(part); err != nil {
			return nil, err
		}
	}

	return sum(hasher), nil
}

// NewStringKey is the fast path for plain string keys.
func NewStringKey(key string) *Key {
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()
	defer hasherPool.Put(hasher)

	_, _ = hasher.Write(unsafe.Slice(unsafe.StringData(key), len(key)))
	return sum(hasher)
}

// RestoreKey rebuilds a key from its persisted parts.
func RestoreKey(v, hi, lo uint64) *Key {
	return &Key{v: v, hi: hi, lo: lo}
}

func (k *Key) Value() uint64 {
	return k.v
}

func (k *Key) Parts() (v, hi, lo uint64) {
	return k.v, k.hi, k.lo
}

func (k *Key) IsTheSame(key *Key) (same bool) {
	return k.v == key.v && k.hi == key.hi && k.lo == key.lo
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

func sum(hasher *xxh3.Hasher) *Key {
	u128 := hasher.Sum128()
	return &Key{
		v:  hasher.Sum64(),
		hi: u128.Hi,
		lo: u128.Lo,
	}
}

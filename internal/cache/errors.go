package cache

import (
	"errors"

	"github.com/Borislavv/go-localcache/internal/cache/db/model"
)

// Configuration errors, returned by constructors.
var (
	ErrNameRequired            = errors.New("cache name is required")
	ErrInvalidLimit            = errors.New("limit must be NoLimit or a positive number")
	ErrInvalidExpire           = errors.New("expire must be positive")
	ErrInvalidClearCount       = errors.New("clear count must be positive")
	ErrInvalidChunkSize        = errors.New("chunk size must be positive for persistent caches")
	ErrClearanceLockRequired   = errors.New("clearance lock is required")
	ErrPersistenceLockRequired = errors.New("persistence lock is required for persistent caches")
	ErrStoreRequired           = errors.New("backing store is required for persistent caches")
	ErrSerializerMismatch      = errors.New("serializer does not match the cache value type")
)

// Operational errors.
var (
	ErrUnhashableKey   = model.ErrUnhashableKey
	ErrNotPersistent   = errors.New("cache is not persistent")
	ErrVersionRequired = errors.New("persistence version is required")
	ErrClosed          = errors.New("cache is closed")
	ErrSelfCheckFailed = errors.New("cache self check failed")
)

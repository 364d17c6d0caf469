package localcache

import (
	"errors"

	"github.com/Borislavv/go-localcache/internal/cache"
)

var (
	ErrNameRequired            = cache.ErrNameRequired
	ErrInvalidLimit            = cache.ErrInvalidLimit
	ErrInvalidExpire           = cache.ErrInvalidExpire
	ErrInvalidClearCount       = cache.ErrInvalidClearCount
	ErrInvalidChunkSize        = cache.ErrInvalidChunkSize
	ErrClearanceLockRequired   = cache.ErrClearanceLockRequired
	ErrPersistenceLockRequired = cache.ErrPersistenceLockRequired
	ErrStoreRequired           = cache.ErrStoreRequired
	ErrSerializerMismatch      = cache.ErrSerializerMismatch
	ErrUnhashableKey           = cache.ErrUnhashableKey
	ErrNotPersistent           = cache.ErrNotPersistent
	ErrVersionRequired         = cache.ErrVersionRequired
	ErrClosed                  = cache.ErrClosed
	ErrSelfCheckFailed         = cache.ErrSelfCheckFailed
)

var (
	ErrDuplicateCache = errors.New("cache is already registered")
	ErrCacheNotFound  = errors.New("cache is not registered")
	ErrUnknownStore   = errors.New("unknown store kind")
)

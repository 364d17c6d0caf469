package localcache

import (
	"context"
	"fmt"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/store"
	"github.com/Borislavv/go-localcache/store/file"
	"github.com/Borislavv/go-localcache/store/memory"
	"github.com/Borislavv/go-localcache/store/s3"
)

type Store = store.Store

// OpenStore builds the backing store selected by cfg. A nil cfg opens an in-process store.
func OpenStore(ctx context.Context, cfg *config.StoreCfg) (Store, error) {
	if !cfg.Enabled() {
		return memory.New(), nil
	}

	switch cfg.Kind {
	case config.StoreMemory, "":
		return memory.New(), nil
	case config.StoreFile:
		st, err := file.New(cfg.Dir, cfg.Gzip)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return st, nil
	case config.StoreS3:
		st, err := s3.Connect(ctx, s3.Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			Gzip:      cfg.Gzip,
			Fetchers:  cfg.Concurrency,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("%q: %w", cfg.Kind, ErrUnknownStore)
}

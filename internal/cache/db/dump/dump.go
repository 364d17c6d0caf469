// Package dump moves cache items between a container and a durable store.
package dump

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Borislavv/go-localcache/internal/cache/db/model"
	"github.com/Borislavv/go-localcache/internal/shared/bytes"
	"github.com/Borislavv/go-localcache/store"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

var ErrInvalidChunkSize = errors.New("chunk size must be positive")

type Dump[V any] struct {
	store      store.Store
	serializer model.Serializer[V]
	clock      clock.Clock
	logger     zerolog.Logger
}

func New[V any](st store.Store, serializer model.Serializer[V], clk clock.Clock, logger zerolog.Logger) *Dump[V] {
	return &Dump[V]{store: st, serializer: serializer, clock: clk, logger: logger}
}

// Write serializes items and inserts them chunkSize rows per insert.
// Items are stamped in the given order, so the last one is the newest row.
// Expired items are skipped, items failing to serialize are logged and skipped.
func (d *Dump[V]) Write(ctx context.Context, scope store.Scope, items []*model.Item[V], chunkSize int) (written int, err error) {
	if chunkSize <= 0 {
		return 0, ErrInvalidChunkSize
	}

	start := d.clock.Now()
	var (
		fails, expired, chunks int
		size                   uint64
		rows                   = make([]store.Row, 0, min(chunkSize, len(items)))
	)

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if ierr := d.store.Insert(ctx, rows); ierr != nil {
			return fmt.Errorf("insert chunk %d: %w", chunks+1, ierr)
		}
		chunks++
		written += len(rows)
		rows = rows[:0]
		return nil
	}

	for i, it := range items {
		if it.IsExpired(start) {
			expired++
			continue
		}
		data, serr := d.serializer.Serialize(it, start)
		if serr != nil {
			fails++
			d.logger.Error().Err(serr).Uint64("key", it.Key().Value()).Msg("[dump] item serialization failed")
			continue
		}
		size += uint64(len(data))
		rows = append(rows, store.Row{
			CacheName: scope.CacheName,
			ShardName: scope.ShardName,
			Version:   scope.Version,
			Key:       it.Key().Value(),
			Item:      data,
			CreatedOn: start.Add(time.Duration(i)),
		})
		if len(rows) == chunkSize {
			if err = flush(); err != nil {
				return written, err
			}
		}
	}
	if err = flush(); err != nil {
		return written, err
	}

	d.logger.Info().
		Str("version", scope.Version).
		Int("written", written).
		Int("fails", fails).
		Int("expired", expired).
		Int("chunks", chunks).
		Str("size", bytes.FmtMem(size)).
		Str("elapsed", d.clock.Since(start).String()).
		Msg("dumping finished")

	return written, nil
}

// Read queries up to limit rows newest first (limit <= 0 reads all) and hands every decoded item
// to restore. Rows failing to decode are logged and skipped. The whole scope is deleted afterwards,
// rows beyond limit included, so a later Read never sees them.
func (d *Dump[V]) Read(ctx context.Context, scope store.Scope, limit int, restore func(*model.Item[V])) (restored int, err error) {
	start := d.clock.Now()

	rows, err := d.store.Query(ctx, scope, limit)
	if err != nil {
		if !errors.Is(err, store.ErrCorrupted) {
			return 0, fmt.Errorf("query rows: %w", err)
		}
		d.logger.Warn().Err(err).Str("version", scope.Version).Msg("[load] corrupted rows skipped")
	}

	var fails int
	for _, row := range rows {
		it, derr := d.serializer.Deserialize(row.Item, start)
		if derr != nil {
			fails++
			d.logger.Error().Err(derr).Uint64("key", row.Key).Msg("[load] item deserialization failed")
			continue
		}
		restore(it)
		restored++
	}

	if err = d.store.Delete(ctx, scope, nil); err != nil {
		return restored, fmt.Errorf("delete loaded rows: %w", err)
	}

	d.logger.Info().
		Str("version", scope.Version).
		Int("restored", restored).
		Int("fails", fails).
		Str("elapsed", d.clock.Since(start).String()).
		Msg("restoring dump")

	return restored, nil
}

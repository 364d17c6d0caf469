package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"
)

var ErrExpiredItem = errors.New("item is expired")

// Serializer converts items to bytes and back for persistence.
type Serializer[V any] interface {
	Serialize(item *Item[V], now time.Time) ([]byte, error)
	Deserialize(data []byte, now time.Time) (*Item[V], error)
}

type record[V any] struct {
	V, Hi, Lo   uint64
	Value       V
	Window      int64
	Remaining   int64
	Refreshable bool
}

// GobSerializer encodes items with encoding/gob, optionally gzip compressed.
// Interface-typed values need their concrete types registered with gob.Register.
type GobSerializer[V any] struct {
	compress bool
	level    int
}

func NewGobSerializer[V any]() *GobSerializer[V] {
	return &GobSerializer[V]{}
}

func NewCompressedGobSerializer[V any](level int) *GobSerializer[V] {
	return &GobSerializer[V]{compress: true, level: level}
}

func (s *GobSerializer[V]) Serialize(item *Item[V], now time.Time) ([]byte, error) {
	if item.IsExpired(now) {
		return nil, ErrExpiredItem
	}

	v, hi, lo := item.key.Parts()
	rec := record[V]{
		V:           v,
		Hi:          hi,
		Lo:          lo,
		Value:       item.value,
		Window:      item.window,
		Remaining:   int64(item.Remaining(now)),
		Refreshable: item.refreshable,
	}

	var buf bytes.Buffer
	if !s.compress {
		if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
			return nil, fmt.Errorf("gob encode item: %w", err)
		}
		return buf.Bytes(), nil
	}

	gw, err := gzip.NewWriterLevel(&buf, s.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if err = gob.NewEncoder(gw).Encode(&rec); err != nil {
		_ = gw.Close()
		return nil, fmt.Errorf("gob encode item: %w", err)
	}
	if err = gw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize restores an item whose deadline is now plus the window left at serialization time.
func (s *GobSerializer[V]) Deserialize(data []byte, now time.Time) (*Item[V], error) {
	var rec record[V]
	if !s.compress {
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
			return nil, fmt.Errorf("gob decode item: %w", err)
		}
	} else {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		if err = gob.NewDecoder(gr).Decode(&rec); err != nil {
			return nil, fmt.Errorf("gob decode item: %w", err)
		}
	}

	it := &Item[V]{
		key:         RestoreKey(rec.V, rec.Hi, rec.Lo),
		value:       rec.Value,
		window:      rec.Window,
		refreshable: rec.Refreshable,
	}
	if it.window > 0 {
		it.setExpireAt(now.UnixNano() + rec.Remaining)
	}
	return it, nil
}

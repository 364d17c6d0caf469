// Package file is a Store keeping one directory per scope and one file per inserted chunk.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-localcache/store"
	"github.com/benbjohnson/clock"
)

const (
	chunkExt = ".rows"
	gzipExt  = ".gz"
	tmpExt   = ".tmp"
)

type Store struct {
	mu    sync.Mutex
	dir   string
	gzip  bool
	clock clock.Clock
	seq   atomic.Uint64
}

func New(dir string, gzip bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir, gzip: gzip, clock: clock.New()}, nil
}

func (s *Store) Insert(ctx context.Context, rows []store.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scope, err := store.ScopeOf(rows)
	if err != nil || len(rows) == 0 {
		return err
	}

	dir := s.scopeDir(scope)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scope dir: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("chunk-%d-%d%s", s.clock.Now().UnixNano(), s.seq.Add(1), s.ext()))
	return s.writeChunk(name, rows)
}

func (s *Store) Query(ctx context.Context, scope store.Scope, limit int) ([]store.Row, error) {
	files, err := s.chunks(scope)
	if err != nil {
		return nil, err
	}

	var (
		rows    []store.Row
		readErr error
	)
	for _, fn := range files {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		chunk, rerr := s.readChunk(fn, scope)
		rows = append(rows, chunk...)
		readErr = errors.Join(readErr, rerr)
	}
	return store.NewestFirst(rows, limit), readErr
}

func (s *Store) Delete(ctx context.Context, scope store.Scope, keys []uint64) error {
	if keys == nil {
		if err := os.RemoveAll(s.scopeDir(scope)); err != nil {
			return fmt.Errorf("remove scope dir: %w", err)
		}
		return nil
	}

	files, err := s.chunks(scope)
	if err != nil {
		return err
	}
	for _, fn := range files {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = s.rewriteChunk(fn, scope, keys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rewriteChunk(fn string, scope store.Scope, keys []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readChunk(fn, scope)
	if err != nil {
		return err
	}
	before := len(rows)
	rows = store.Without(rows, keys)
	switch {
	case len(rows) == before:
		return nil
	case len(rows) == 0:
		if err = os.Remove(fn); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove chunk %s: %w", fn, err)
		}
		return nil
	default:
		return s.writeChunk(fn, rows)
	}
}

// writeChunk writes into a temp file and renames it, a reader never sees a partial chunk.
func (s *Store) writeChunk(name string, rows []store.Row) error {
	tmp := name + tmpExt
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create chunk %s: %w", tmp, err)
	}

	if err = store.WriteRows(f, rows, strings.HasSuffix(name, gzipExt)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync chunk %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close chunk %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename chunk %s: %w", tmp, err)
	}
	return nil
}

func (s *Store) readChunk(fn string, scope store.Scope) ([]store.Row, error) {
	f, err := os.Open(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open chunk %s: %w", fn, err)
	}
	defer f.Close()

	rows, err := store.ReadRows(f, scope, strings.HasSuffix(fn, gzipExt))
	if err != nil {
		return rows, fmt.Errorf("read chunk %s: %w", fn, err)
	}
	return rows, nil
}

func (s *Store) chunks(scope store.Scope) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.scopeDir(scope), "chunk-*"+chunkExt+"*"))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return slicesWithout(files, tmpExt), nil
}

func (s *Store) scopeDir(scope store.Scope) string {
	return filepath.Join(s.dir, segment(scope.CacheName), segment(scope.ShardName), segment(scope.Version))
}

// segment never yields an empty path element.
func segment(name string) string {
	return "_" + url.PathEscape(name)
}

func (s *Store) ext() string {
	if s.gzip {
		return chunkExt + gzipExt
	}
	return chunkExt
}

func slicesWithout(files []string, suffix string) []string {
	out := files[:0]
	for _, f := range files {
		if !strings.HasSuffix(f, suffix) {
			out = append(out, f)
		}
	}
	return out
}

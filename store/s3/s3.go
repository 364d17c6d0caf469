// Package s3 is a Store keeping one S3 object per inserted chunk.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-localcache/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sourcegraph/conc/pool"
)

const (
	chunkExt         = ".rows"
	gzipExt          = ".gz"
	maxDeleteBatch   = 1000
	defaultFetchers  = 8
	defaultRegion    = "us-east-1"
	defaultKeyPrefix = "localcache"
)

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
}

type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
	Gzip      bool
	Fetchers  int
}

type Store struct {
	api      API
	bucket   string
	prefix   string
	gzip     bool
	fetchers int
	seq      atomic.Uint64
}

// Connect builds an S3 client from the default AWS credential chain.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name cannot be empty")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return New(client, cfg), nil
}

func New(api API, cfg Config) *Store {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	fetchers := cfg.Fetchers
	if fetchers <= 0 {
		fetchers = defaultFetchers
	}
	return &Store{api: api, bucket: cfg.Bucket, prefix: prefix, gzip: cfg.Gzip, fetchers: fetchers}
}

func (s *Store) Insert(ctx context.Context, rows []store.Row) error {
	scope, err := store.ScopeOf(rows)
	if err != nil || len(rows) == 0 {
		return err
	}

	key := path.Join(s.scopePrefix(scope), fmt.Sprintf("chunk-%d-%d%s", time.Now().UnixNano(), s.seq.Add(1), s.ext()))
	return s.put(ctx, key, rows)
}

func (s *Store) Query(ctx context.Context, scope store.Scope, limit int) ([]store.Row, error) {
	keys, err := s.list(ctx, scope)
	if err != nil {
		return nil, err
	}

	p := pool.NewWithResults[fetched]().WithErrors().WithContext(ctx).WithMaxGoroutines(s.fetchers)
	for _, key := range keys {
		p.Go(func(ctx context.Context) (fetched, error) {
			rows, gerr := s.get(ctx, key, scope)
			if gerr != nil && !errors.Is(gerr, store.ErrCorrupted) {
				return fetched{}, gerr
			}
			return fetched{rows: rows, err: gerr}, nil
		})
	}
	chunks, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var (
		rows      []store.Row
		corrupted error
	)
	for _, chunk := range chunks {
		rows = append(rows, chunk.rows...)
		corrupted = errors.Join(corrupted, chunk.err)
	}
	return store.NewestFirst(rows, limit), corrupted
}

// fetched holds the readable rows of one object and its corruption, if any.
type fetched struct {
	rows []store.Row
	err  error
}

func (s *Store) Delete(ctx context.Context, scope store.Scope, keys []uint64) error {
	objects, err := s.list(ctx, scope)
	if err != nil {
		return err
	}
	if keys == nil {
		return s.deleteObjects(ctx, objects)
	}

	var emptied []string
	for _, object := range objects {
		rows, gerr := s.get(ctx, object, scope)
		if gerr != nil {
			return gerr
		}
		before := len(rows)
		rows = store.Without(rows, keys)
		switch {
		case len(rows) == before:
		case len(rows) == 0:
			emptied = append(emptied, object)
		default:
			if err = s.put(ctx, object, rows); err != nil {
				return err
			}
		}
	}
	return s.deleteObjects(ctx, emptied)
}

func (s *Store) put(ctx context.Context, key string, rows []store.Row) error {
	var buf bytes.Buffer
	if err := store.WriteRows(&buf, rows, strings.HasSuffix(key, gzipExt)); err != nil {
		return err
	}

	_, err := s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, scope store.Scope) ([]store.Row, error) {
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	rows, err := store.ReadRows(out.Body, scope, strings.HasSuffix(key, gzipExt))
	if err != nil {
		return rows, fmt.Errorf("read object %s: %w", key, err)
	}
	return rows, nil
}

func (s *Store) list(ctx context.Context, scope store.Scope) ([]string, error) {
	var keys []string
	paginator := awss3.NewListObjectsV2Paginator(s.api, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.scopePrefix(scope) + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.Contains(path.Base(key), chunkExt) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (s *Store) deleteObjects(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		batch := keys[start:min(start+maxDeleteBatch, len(keys))]

		ids := make([]types.ObjectIdentifier, 0, len(batch))
		for _, key := range batch {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("delete object %s: %s", aws.ToString(out.Errors[0].Key), aws.ToString(out.Errors[0].Message))
		}
	}
	return nil
}

func (s *Store) scopePrefix(scope store.Scope) string {
	return path.Join(s.prefix, segment(scope.CacheName), segment(scope.ShardName), segment(scope.Version))
}

// segment never yields an empty key element.
func segment(name string) string {
	return "_" + url.PathEscape(name)
}

func (s *Store) ext() string {
	if s.gzip {
		return chunkExt + gzipExt
	}
	return chunkExt
}

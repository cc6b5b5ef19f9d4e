// Package cache keeps rendered pages keyed by request so repeated browsing
// skips the database. Entries expire after a TTL and every successful write
// request purges the whole cache.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"pagetags/config"
)

// Store holds cached pages.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Purge(ctx context.Context) error
}

// New returns the store selected by conf, or nil when caching is disabled.
func New(conf config.CacheConfig) (Store, error) {
	switch conf.Backend {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheFile:
		store, err := NewFileStore(conf.Dir)
		if err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return store, nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		return NewRedisStore(client, conf.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", conf.Backend)
	}
}

// Key hashes the parts into a fixed-length key.
func Key(parts ...string) string {
	return generateHash(strings.Join(parts, "\x00"))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// FileStore keeps one file per key under dir. Expiry is judged by the
// file modification time.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".html")
}

// Get reads the entry if it exists and is younger than the TTL it was
// written with.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool) {
	path := s.path(key)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	expires, err := os.ReadFile(path + ".ttl")
	if err == nil {
		ttl, err := time.ParseDuration(string(expires))
		if err != nil || time.Since(info.ModTime()) > ttl {
			return nil, false
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return content, true
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	path := s.path(key)
	if err := os.WriteFile(path, value, 0644); err != nil {
		return err
	}
	return os.WriteFile(path+".ttl", []byte(ttl.String()), 0644)
}

// Purge removes every cached file.
func (s *FileStore) Purge(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.html*"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ClearOld removes files older than maxAge.
func (s *FileStore) ClearOld(maxAge time.Duration) error {
	return filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}

// RedisStore keeps entries under prefix with native expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Purge deletes every key under the prefix.
func (s *RedisStore) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package valkey

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

const storageOpTimeout = 2 * time.Second

// Storage adapts Cache to fiber.Storage so rate-limit counters are shared
// between API replicas. All keys are namespaced under prefix.
type Storage struct {
	cache  *Cache
	prefix string
}

// NewStorage returns a fiber.Storage backed by c.
func NewStorage(c *Cache, prefix string) *Storage {
	return &Storage{cache: c, prefix: prefix}
}

func (s *Storage) key(k string) string {
	return s.prefix + k
}

// Get returns nil, nil for absent keys, as fiber.Storage requires.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
	defer cancel()

	b, err := s.cache.client.Do(ctx, s.cache.client.B().Get().Key(s.key(key)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	return b, err
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
	defer cancel()
	return s.cache.set(ctx, s.key(key), val, exp)
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
	defer cancel()
	return s.cache.Delete(ctx, s.key(key))
}

// Reset deletes every key under the storage prefix.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := s.cache.client
	var cursor uint64
	for {
		entry, err := client.Do(ctx, client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(200).Build()).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			if err := client.Do(ctx, client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return err
			}
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

// Close is a no-op; the underlying Cache owns the connection.
func (s *Storage) Close() error {
	return nil
}

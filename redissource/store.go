package redissource

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/nodeid/source"
)

// DefaultPrefix is used when Options.Prefix is empty.
const DefaultPrefix = "nodeid"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Prefix is prepended to every key.
	Prefix string

	// TTL expires rows written by Put. Zero keeps them forever.
	TTL time.Duration

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration
}

// Store reads and writes rows in Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a store and verifies the connection.
func New(opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := NewFromClient(client, opts.Prefix)
	s.ttl = opts.TTL
	return s, nil
}

// NewFromClient wraps an existing client. Close closes the client.
func NewFromClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// SchemaChannel is the pub/sub channel used to announce schema changes.
func (s *Store) SchemaChannel() string {
	return s.prefix + ":schema"
}

// Key returns the Redis key holding the row of sourceName identified by spec.
// Key values are rendered as text first, so 42, json.Number("42") and "42"
// address the same row whichever codec decoded the identifier.
func (s *Store) Key(sourceName string, spec source.KeySpec) (string, error) {
	text := make([]string, len(spec))
	for i, kv := range spec {
		text[i] = fmt.Sprint(kv.Value)
	}
	values, err := json.Marshal(text)
	if err != nil {
		return "", fmt.Errorf("failed to marshal key values: %w", err)
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, sourceName, values), nil
}

// Put stores row under the values of its key columns.
func (s *Store) Put(ctx context.Context, sourceName string, keyColumns []string, row source.Row) error {
	spec := make(source.KeySpec, len(keyColumns))
	for i, col := range keyColumns {
		v, ok := row[col]
		if !ok || v == nil {
			return fmt.Errorf("row for %s has no value for key column %q", sourceName, col)
		}
		spec[i] = source.KeyValue{Column: col, Value: v}
	}

	key, err := s.Key(sourceName, spec)
	if err != nil {
		return err
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store row %s: %w", key, err)
	}

	return nil
}

// Delete removes the row identified by spec.
func (s *Store) Delete(ctx context.Context, sourceName string, spec source.KeySpec) error {
	key, err := s.Key(sourceName, spec)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete row %s: %w", key, err)
	}
	return nil
}

// Get fetches the row of sourceName identified by spec. A missing key yields
// source.ErrRowNotFound.
func (s *Store) Get(ctx context.Context, sourceName string, spec source.KeySpec) (source.Row, error) {
	key, err := s.Key(sourceName, spec)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, source.ErrRowNotFound
		}
		return nil, fmt.Errorf("failed to get row %s: %w", key, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var row source.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row %s: %w", key, err)
	}

	return row, nil
}

// Getter returns a source.Getter for rows of sourceName.
func (s *Store) Getter(sourceName string) source.Getter {
	return source.GetterFunc(func(ctx context.Context, spec source.KeySpec) (source.Row, error) {
		return s.Get(ctx, sourceName, spec)
	})
}

// Bind gives every descriptor without a getter one backed by this store.
// It returns the number of descriptors bound.
func (s *Store) Bind(descriptors []*source.Descriptor) int {
	n := 0
	for _, d := range descriptors {
		if d == nil || d.Getter != nil {
			continue
		}
		d.Getter = s.Getter(d.Name)
		n++
	}
	return n
}

// PublishSchemaChange announces a schema change on SchemaChannel.
func (s *Store) PublishSchemaChange(ctx context.Context, reason string) error {
	if err := s.client.Publish(ctx, s.SchemaChannel(), reason).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", s.SchemaChannel(), err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

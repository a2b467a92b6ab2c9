package store

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"github.com/viant/rpcchannel/request"
)

const defaultRedisPrefix = "rpcchannel:stored:"

// RedisStore keeps stored requests as JSON values with a sorted set index ordered by
// creation time.
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption represents redis store option
type RedisOption func(s *RedisStore)

// WithPrefix sets the key prefix, allowing several channels to share one database.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a store connected to address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	ret := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Put(ctx context.Context, r *request.Request) error {
	if err := validate(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(r.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(r.CreatedAt.UnixNano()),
		Member: r.ID,
	})
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*request.Request, bool, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}
	ret, err := decode(val)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return ret, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns stored requests in index order; index members whose value expired or
// was removed externally are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*request.Request, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}
	ret := make([]*request.Request, 0, len(values))
	for i, value := range values {
		text, ok := value.(string)
		if !ok {
			continue
		}
		r, err := decode([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal request %s: %w", ids[i], err)
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, s.indexKey())
	return s.client.Del(ctx, keys...).Err()
}

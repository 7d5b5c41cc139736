package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/blockfield/internal/db"
)

// HGet returns one hash field, or db.ErrKeyNotFound if the key or field is missing.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", db.ErrKeyNotFound
		}
		return "", &db.Error{Op: db.OpHGet, Err: err}
	}
	return v, nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// HSetIfNewer runs the version-guarded write script in one round trip.
func (s *Store) HSetIfNewer(
	ctx context.Context, key string, version int64, fields []db.VersionedField,
) ([]bool, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	raw := db.SetIfNewerArgs(version, fields)
	args := make([]any, len(raw))
	for i, a := range raw {
		args[i] = a
	}
	replies, err := s.setIfNewer.Run(ctx, s.client, []string{key}, args...).Int64Slice()
	if err != nil {
		return nil, &db.Error{Op: db.OpEval, Err: err}
	}
	return db.Applied(replies), nil
}

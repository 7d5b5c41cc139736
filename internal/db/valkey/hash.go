package valkey

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/blockfield/internal/db"
)

// HGet returns one hash field, or db.ErrKeyNotFound if the key or field is missing.
func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	cmd := s.b().Hget().Key(key).Field(field).Build()
	v, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", db.ErrKeyNotFound
		}
		return "", &db.Error{Op: db.OpHGet, Err: err}
	}
	return v, nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// Del deletes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
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
	replies, err := s.setIfNewer.Exec(ctx, s.client, []string{key}, db.SetIfNewerArgs(version, fields)).AsIntSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpEval, Err: err}
	}
	return db.Applied(replies), nil
}

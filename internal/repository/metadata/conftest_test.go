package metadata

import (
	"context"

	"github.com/kailas-cloud/blockfield/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	hsetIfNewerFn func(ctx context.Context, key string, version int64, fields []db.VersionedField) ([]bool, error)
	delFn         func(ctx context.Context, key string) error
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HSetIfNewer(
	ctx context.Context, key string, version int64, fields []db.VersionedField,
) ([]bool, error) {
	if m.hsetIfNewerFn != nil {
		return m.hsetIfNewerFn(ctx, key, version, fields)
	}
	out := make([]bool, len(fields))
	for i := range out {
		out[i] = true
	}
	return out, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

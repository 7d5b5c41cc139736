// Package blockfield is the embeddable client for block field projection.
//
// A Client reads documents made of annotated blocks, keeps a denormalized
// copy of their persisted attributes in Valkey or Redis, and answers field
// projections from that copy when it is fresh, falling back to parsing the
// document when it is not.
package blockfield

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/blockfield/internal/db"
	dbRedis "github.com/kailas-cloud/blockfield/internal/db/redis"
	dbValkey "github.com/kailas-cloud/blockfield/internal/db/valkey"
	"github.com/kailas-cloud/blockfield/internal/domain/schema"
	documentrepo "github.com/kailas-cloud/blockfield/internal/repository/document"
	"github.com/kailas-cloud/blockfield/internal/repository/fsdoc"
	metadatarepo "github.com/kailas-cloud/blockfield/internal/repository/metadata"
	"github.com/kailas-cloud/blockfield/internal/repository/schemafile"
	"github.com/kailas-cloud/blockfield/internal/usecase/metasync"
	"github.com/kailas-cloud/blockfield/internal/usecase/projection"
)

const readyTimeout = 5 * time.Second

// Client projects fields out of stored documents.
type Client struct {
	store    db.Store
	registry *schema.Registry
	engine   *projection.Engine
	syncer   *metasync.Service
}

// New connects to the configured backend and loads the block schemas.
// One of WithValkey or WithRedis and at least one schema option are required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.driver == "" {
		return nil, errors.New("blockfield: driver is required (use WithValkey or WithRedis)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("blockfield: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if err := store.WaitForReady(ctx, readyTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("blockfield: %w", err)
	}

	c, err := wireClient(store, reg, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func loadRegistry(cfg *clientConfig) (*schema.Registry, error) {
	switch {
	case len(cfg.schemaGlobs) > 0 && len(cfg.schemaYAML) > 0:
		return nil, errors.New("blockfield: use either WithSchemaFiles or WithSchemaYAML")
	case len(cfg.schemaGlobs) > 0:
		reg, err := schemafile.Load(cfg.schemaGlobs)
		if err != nil {
			return nil, fmt.Errorf("blockfield: load schema: %w", err)
		}
		return reg, nil
	case len(cfg.schemaYAML) > 0:
		reg, err := schemafile.ParseAll(cfg.schemaYAML...)
		if err != nil {
			return nil, fmt.Errorf("blockfield: parse schema: %w", err)
		}
		return reg, nil
	default:
		return nil, errors.New("blockfield: no block schema configured")
	}
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		return dbValkey.NewStore(dbValkey.Config{Addrs: cfg.addrs, Password: cfg.password})
	case "redis":
		return dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, reg *schema.Registry, cfg *clientConfig) (*Client, error) {
	metaRepo := metadatarepo.New(store, cfg.keyPrefix)

	var docs projection.DocumentSource
	if cfg.docRoot != "" {
		src, err := fsdoc.New(cfg.docRoot, cfg.docPattern)
		if err != nil {
			return nil, fmt.Errorf("blockfield: open document root: %w", err)
		}
		docs = src
	} else {
		docs = documentrepo.New(store, cfg.keyPrefix)
	}

	return &Client{
		store:    store,
		registry: reg,
		engine:   projection.New(reg, docs, metaRepo, cfg.logger.Named("projection")),
		syncer:   metasync.New(reg, metaRepo, cfg.logger.Named("sync")),
	}, nil
}

// Project resolves the given field paths of a document. Paths are
// "block.attr" and "block.*" for the first occurrence, "block[].attr" and
// "block[].*" for every occurrence; no paths selects every registered block.
func (c *Client) Project(ctx context.Context, docID string, paths ...string) (Result, error) {
	res, err := c.engine.Project(ctx, docID, paths)
	if err != nil {
		return Result{}, err
	}
	return resultFromDomain(res), nil
}

// Sync rewrites the metadata of a document saved at version. Call it after
// every save; older versions never overwrite newer ones. Entries that could
// not be written are listed in SyncReport.Failed and do not fail the call.
func (c *Client) Sync(ctx context.Context, docID, content string, version int64) (SyncReport, error) {
	rep, err := c.syncer.Sync(ctx, docID, content, version)
	if err != nil {
		return SyncReport{}, err
	}
	return reportFromDomain(rep), nil
}

// Purge drops all metadata of a deleted document.
func (c *Client) Purge(ctx context.Context, docID string) error {
	return c.syncer.Purge(ctx, docID)
}

// Blocks lists the registered block schemas in registration order.
func (c *Client) Blocks() []BlockInfo {
	return blocksFromRegistry(c.registry)
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases the backend connection.
func (c *Client) Close() {
	c.store.Close()
}

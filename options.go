package blockfield

import (
	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver      string
	addrs       []string
	password    string
	keyPrefix   string
	schemaGlobs []string
	schemaYAML  [][]byte
	docRoot     string
	docPattern  string
	logger      *zap.Logger
}

// WithValkey connects to Valkey at addr.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis connects to Redis at addr.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithSchemaFiles registers the block schemas found by the globs (** supported).
func WithSchemaFiles(globs ...string) Option {
	return func(c *clientConfig) {
		c.schemaGlobs = append(c.schemaGlobs, globs...)
	}
}

// WithSchemaYAML registers block schemas from an in-memory YAML document.
func WithSchemaYAML(data []byte) Option {
	return func(c *clientConfig) {
		c.schemaYAML = append(c.schemaYAML, data)
	}
}

// WithKeyPrefix sets the storage key prefix (default "blockfield:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithDocumentRoot reads documents from files below dir instead of the store.
// An empty pattern includes every .html file.
func WithDocumentRoot(dir, pattern string) Option {
	return func(c *clientConfig) {
		c.docRoot = dir
		c.docPattern = pattern
	}
}

// WithLogger sets the logger used by synchronization and projection.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

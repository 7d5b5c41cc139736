package domain

// DefaultKeyPrefix is the storage key prefix used when none is configured.
const DefaultKeyPrefix = "blockfield:"

package db

import (
	"context"
	"errors"
)

// Storage keys for the two record collections.
const (
	MaintenanceKey = "oil_change_records"
	WarrantyKey    = "warranty_records"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")

// KeyValueStore defines the persistent storage the record managers write to.
// Values are opaque byte strings; the managers store JSON arrays.
type KeyValueStore interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

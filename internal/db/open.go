package db

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Options selects and configures a storage driver.
type Options struct {
	Driver          string
	Dir             string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open returns the KeyValueStore named by opts.Driver.
func Open(ctx context.Context, opts Options) (KeyValueStore, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverFile:
		return NewFileStore(opts.Dir)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMongo:
		client, err := ConnectMongo(ctx, opts.MongoURI)
		if err != nil {
			return nil, err
		}
		coll := opts.MongoCollection
		if coll == "" {
			coll = "kv"
		}
		return NewMongoStore(client, opts.MongoDatabase, coll), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

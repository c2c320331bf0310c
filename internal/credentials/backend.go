package credentials

import (
	"fmt"
	"os"
	"path/filepath"

	datastore "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"
)

// OpenLevelDB opens (creating if needed) an on-disk store at dir
func OpenLevelDB(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Clean(dir), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	d, err := leveldb.NewDatastore(dir, &leveldb.Options{
		NoSync: false, // every commit is fsynced
	})
	if err != nil {
		return nil, NewStorageError(fmt.Sprintf("failed to open leveldb at %s", dir), err)
	}

	return Open(d, opts...), nil
}

// OpenMemory returns a store backed by a thread-safe in-memory map.
// Nothing survives the process; it backs tests and the simulator.
func OpenMemory(opts ...Option) *Store {
	return Open(dssync.MutexWrap(datastore.NewMapDatastore()), opts...)
}

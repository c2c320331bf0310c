package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Namespace is the key prefix every credential record lives under
var Namespace = datastore.NewKey("/wifi")

var countKey = datastore.NewKey("/count")

func slotKey(slot int, field string) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("/net%d/%s", slot, field))
}

// Store is the durable, capacity-bounded list of saved networks.
//
// Every mutation is committed to the underlying datastore (batch + sync)
// before the in-memory set changes, so a call that returned nil survives
// a power loss immediately afterwards.
type Store struct {
	mu       sync.RWMutex
	ds       datastore.Batching
	policy   CapacityPolicy
	capacity int
	set      Set
	loaded   bool
}

// Option configures a Store
type Option func(*Store)

// WithPolicy sets the behaviour of a save for a new identifier on a full store
func WithPolicy(p CapacityPolicy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithCapacity overrides MaxNetworks. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// Open wraps d under Namespace. It does not read anything; call Load.
func Open(d datastore.Batching, opts ...Option) *Store {
	s := &Store{
		ds:       namespace.Wrap(d, Namespace),
		policy:   PolicyReject,
		capacity: MaxNetworks,
		set:      Set{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the store's capacity policy
func (s *Store) Policy() CapacityPolicy {
	return s.policy
}

// Capacity returns the number of slots
func (s *Store) Capacity() int {
	return s.capacity
}

// Load reads the saved networks from the datastore.
//
// Load never fails: an absent record is a normal cold start and an
// unreadable or inconsistent one is logged and treated as no saved networks.
func (s *Store) Load(ctx context.Context) Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.read(ctx)
	if err != nil {
		logging.Warn("Saved networks unreadable, continuing with none",
			zap.Error(err),
		)
		set = Set{}
	} else {
		logging.Info("Loaded saved networks",
			zap.Int("count", len(set)),
			zap.Strings("ssids", set.SSIDs()),
		)
	}

	s.set = set
	s.loaded = true
	return set.Clone()
}

func (s *Store) read(ctx context.Context) (Set, error) {
	raw, err := s.ds.Get(ctx, countKey)
	if errors.Is(err, datastore.ErrNotFound) {
		return Set{}, nil
	}
	if err != nil {
		return nil, NewStorageError("failed to read network count", err)
	}

	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return nil, NewCorruptError(fmt.Sprintf("network count %q is not a number", raw), err)
	}
	if count < 0 || count > s.capacity {
		return nil, NewCorruptError(fmt.Sprintf("network count %d outside 0-%d", count, s.capacity), nil)
	}

	set := make(Set, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.ds.Get(ctx, slotKey(i, "id"))
		if err != nil {
			return nil, NewCorruptError(fmt.Sprintf("slot %d identifier unreadable", i), err)
		}
		secret, err := s.ds.Get(ctx, slotKey(i, "secret"))
		if err != nil {
			return nil, NewCorruptError(fmt.Sprintf("slot %d secret unreadable", i), err)
		}
		if len(id) == 0 {
			return nil, NewCorruptError(fmt.Sprintf("slot %d identifier is empty", i), nil)
		}
		if set.Contains(string(id)) {
			return nil, NewCorruptError(fmt.Sprintf("slot %d duplicates %q", i, id), nil)
		}
		set = append(set, NetworkCredential{SSID: string(id), Secret: string(secret)})
	}

	return set, nil
}

// persist writes next as the complete record in one batch and syncs it.
func (s *Store) persist(ctx context.Context, next Set) error {
	b, err := s.ds.Batch(ctx)
	if err != nil {
		return NewStorageError("failed to open batch", err)
	}

	for i, c := range next {
		if err := b.Put(ctx, slotKey(i, "id"), []byte(c.SSID)); err != nil {
			return NewStorageError("failed to stage identifier", err)
		}
		if err := b.Put(ctx, slotKey(i, "secret"), []byte(c.Secret)); err != nil {
			return NewStorageError("failed to stage secret", err)
		}
	}
	for i := len(next); i < s.capacity; i++ {
		if err := b.Delete(ctx, slotKey(i, "id")); err != nil {
			return NewStorageError("failed to stage slot removal", err)
		}
		if err := b.Delete(ctx, slotKey(i, "secret")); err != nil {
			return NewStorageError("failed to stage slot removal", err)
		}
	}
	if err := b.Put(ctx, countKey, []byte(strconv.Itoa(len(next)))); err != nil {
		return NewStorageError("failed to stage network count", err)
	}

	if err := b.Commit(ctx); err != nil {
		return NewStorageError("failed to commit networks", err)
	}
	if err := s.ds.Sync(ctx, datastore.NewKey("/")); err != nil {
		return NewStorageError("failed to sync networks", err)
	}
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	set, err := s.read(ctx)
	if err != nil {
		logging.Warn("Saved networks unreadable, overwriting on next write", zap.Error(err))
		set = Set{}
	}
	s.set = set
	s.loaded = true
}

// Save inserts ssid or updates its secret in place.
//
// A new identifier on a full store is rejected with a capacity error under
// PolicyReject, or replaces the oldest entry under PolicyEvictOldest.
func (s *Store) Save(ctx context.Context, ssid, secret string) error {
	if err := ValidateCredential(ssid, secret); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	next := s.set.Clone()
	evicted := ""
	updated := false

	if i := next.IndexOf(ssid); i >= 0 {
		next[i].Secret = secret
		updated = true
	} else {
		if len(next) >= s.capacity {
			if s.policy != PolicyEvictOldest {
				return NewCapacityError(ssid, s.capacity)
			}
			evicted = next[0].SSID
			next = next[1:]
		}
		next = append(next, NetworkCredential{SSID: ssid, Secret: secret})
	}

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.set = next

	fields := []zap.Field{
		zap.String("ssid", ssid),
		zap.Bool("updated", updated),
		zap.Int("count", len(next)),
	}
	if evicted != "" {
		fields = append(fields, zap.String("evicted", evicted))
	}
	logging.Info("Network saved", fields...)

	return nil
}

// Delete removes ssid. An absent identifier returns a not-found error and
// leaves the store untouched.
func (s *Store) Delete(ctx context.Context, ssid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if !s.set.Contains(ssid) {
		return NewNotFoundError(ssid)
	}

	next := s.set.Without(ssid)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.set = next

	logging.Info("Network deleted",
		zap.String("ssid", ssid),
		zap.Int("count", len(next)),
	)
	return nil
}

// List returns a copy of the saved networks in priority order
func (s *Store) List() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Clone()
}

// Len returns the number of saved networks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set)
}

// Contains reports whether ssid is saved
func (s *Store) Contains(ssid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Contains(ssid)
}

// Get returns the saved credential for ssid
func (s *Store) Get(ssid string) (NetworkCredential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.set.IndexOf(ssid); i >= 0 {
		return s.set[i], true
	}
	return NetworkCredential{}, false
}

// Close closes the underlying datastore
func (s *Store) Close() error {
	return s.ds.Close()
}

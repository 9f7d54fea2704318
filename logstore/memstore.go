package logstore

import (
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory LogStore, used by component tests across the
// repository instead of spinning up a real leveldb database, the way
// the teacher's tests lean on small dummy structs (sync/bucket_proxy_test.go)
// rather than a real storage engine.
type MemStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	attrs   map[string]map[string][]byte
	omaps   map[string]map[string][]byte
	leases  map[string]*memLease
}

type memLease struct {
	cookie  string
	expires time.Time
}

// NewMemStore creates an empty in-memory LogStore.
func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string][]byte),
		attrs:  make(map[string]map[string][]byte),
		omaps:  make(map[string]map[string][]byte),
		leases: make(map[string]*memLease),
	}
}

func (s *MemStore) Read(oid string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.values[oid]

	if !ok {
		return ErrNotFound
	}

	return decode(raw, out)
}

func (s *MemStore) Write(oid string, value interface{}) error {
	raw, err := encode(value)

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[oid] = raw

	return nil
}

func (s *MemStore) ReadAttrs(oid string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.attrs[oid]

	if !ok {
		return nil, ErrNotFound
	}

	out := make(map[string][]byte, len(bundle))

	for k, v := range bundle {
		out[k] = v
	}

	return out, nil
}

func (s *MemStore) WriteAttrs(oid string, attrs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle, ok := s.attrs[oid]

	if !ok {
		bundle = make(map[string][]byte)
		s.attrs[oid] = bundle
	}

	for k, v := range attrs {
		bundle[k] = v
	}

	return nil
}

func (s *MemStore) OmapGet(oid string, fromKey string, max int) ([]OmapEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	omap, ok := s.omaps[oid]

	if !ok {
		return nil, nil
	}

	keys := make([]string, 0, len(omap))

	for k := range omap {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	entries := make([]OmapEntry, 0, max)

	for _, k := range keys {
		if k < fromKey {
			continue
		}

		if max > 0 && len(entries) >= max {
			break
		}

		entries = append(entries, OmapEntry{Key: k, Value: omap[k]})
	}

	return entries, nil
}

func (s *MemStore) OmapAppend(oid string, entries []OmapEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	omap, ok := s.omaps[oid]

	if !ok {
		omap = make(map[string][]byte)
		s.omaps[oid] = omap
	}

	for _, e := range entries {
		omap[e.Key] = e.Value
	}

	return nil
}

func (s *MemStore) leaseKey(oid, leaseName string) string {
	return oid + "\x00" + leaseName
}

func (s *MemStore) Lock(oid string, leaseName string, cookie string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.leaseKey(oid, leaseName)
	now := time.Now()

	if existing, ok := s.leases[key]; ok && existing.expires.After(now) {
		if existing.cookie != cookie {
			return ErrLeaseHeld
		}
	}

	s.leases[key] = &memLease{cookie: cookie, expires: now.Add(ttl)}

	return nil
}

func (s *MemStore) Unlock(oid string, leaseName string, cookie string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.leaseKey(oid, leaseName)
	existing, ok := s.leases[key]

	if !ok || existing.cookie != cookie {
		return ErrLeaseNotHeld
	}

	delete(s.leases, key)

	return nil
}

package logstore

import (
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	levelErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	valuePrefix = "v:"
	attrPrefix  = "a:"
	omapPrefix  = "o:"
)

// LevelDBStore is the embedded on-disk LogStore driver, grounded on the
// teacher's LevelDBStorageDriver: one goleveldb database partitioned by
// key prefix into values, attribute bundles, and omaps, the way the
// teacher's PrefixedStorageDriver partitions a shared keyspace.
type LevelDBStore struct {
	file string
	db   *leveldb.DB

	leaseMu sync.Mutex
	leases  map[string]*lease
}

type lease struct {
	cookie string
	timer  *time.Timer
}

// OpenLevelDBStore opens (creating if necessary) a leveldb database at
// dir to back the log store.
func OpenLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})

	if err != nil {
		if levelErrors.IsCorrupted(err) {
			db, err = leveldb.RecoverFile(dir, &opt.Options{})

			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	return &LevelDBStore{
		file:   dir,
		db:     db,
		leases: make(map[string]*lease),
	}, nil
}

// Close releases the underlying leveldb database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func isNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (s *LevelDBStore) Read(oid string, out interface{}) error {
	raw, err := s.db.Get([]byte(valuePrefix+oid), nil)

	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}

		return err
	}

	return decode(raw, out)
}

func (s *LevelDBStore) Write(oid string, value interface{}) error {
	raw, err := encode(value)

	if err != nil {
		return err
	}

	return s.db.Put([]byte(valuePrefix+oid), raw, nil)
}

func (s *LevelDBStore) attrKey(oid string, name string) []byte {
	return []byte(attrPrefix + oid + "\x00" + name)
}

func (s *LevelDBStore) ReadAttrs(oid string) (map[string][]byte, error) {
	prefix := []byte(attrPrefix + oid + "\x00")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	attrs := make(map[string][]byte)

	for iter.Next() {
		name := string(iter.Key()[len(prefix):])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		attrs[name] = value
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	if len(attrs) == 0 {
		return nil, ErrNotFound
	}

	return attrs, nil
}

func (s *LevelDBStore) WriteAttrs(oid string, attrs map[string][]byte) error {
	batch := new(leveldb.Batch)

	for name, value := range attrs {
		batch.Put(s.attrKey(oid, name), value)
	}

	return s.db.Write(batch, nil)
}

func (s *LevelDBStore) omapKey(oid string, key string) []byte {
	return []byte(omapPrefix + oid + "\x00" + key)
}

func (s *LevelDBStore) OmapGet(oid string, fromKey string, max int) ([]OmapEntry, error) {
	prefix := []byte(omapPrefix + oid + "\x00")
	fullRange := util.BytesPrefix(prefix)

	if fromKey != "" {
		fullRange.Start = s.omapKey(oid, fromKey)
	}

	iter := s.db.NewIterator(fullRange, nil)
	defer iter.Release()

	entries := make([]OmapEntry, 0, max)

	for iter.Next() && (max <= 0 || len(entries) < max) {
		key := string(iter.Key()[len(prefix):])
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		entries = append(entries, OmapEntry{Key: key, Value: value})
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *LevelDBStore) OmapAppend(oid string, entries []OmapEntry) error {
	batch := new(leveldb.Batch)

	for _, e := range entries {
		batch.Put(s.omapKey(oid, e.Key), e.Value)
	}

	return s.db.Write(batch, nil)
}

func (s *LevelDBStore) leaseKey(oid, leaseName string) string {
	return oid + "\x00" + leaseName
}

func (s *LevelDBStore) Lock(oid string, leaseName string, cookie string, ttl time.Duration) error {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	key := s.leaseKey(oid, leaseName)

	if existing, ok := s.leases[key]; ok {
		if existing.cookie != cookie {
			return ErrLeaseHeld
		}

		existing.timer.Reset(ttl)

		return nil
	}

	l := &lease{cookie: cookie}
	l.timer = time.AfterFunc(ttl, func() {
		s.expireLease(key, cookie)
	})
	s.leases[key] = l

	return nil
}

func (s *LevelDBStore) expireLease(key string, cookie string) {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	if existing, ok := s.leases[key]; ok && existing.cookie == cookie {
		delete(s.leases, key)
	}
}

func (s *LevelDBStore) Unlock(oid string, leaseName string, cookie string) error {
	s.leaseMu.Lock()
	defer s.leaseMu.Unlock()

	key := s.leaseKey(oid, leaseName)
	existing, ok := s.leases[key]

	if !ok || existing.cookie != cookie {
		return ErrLeaseNotHeld
	}

	existing.timer.Stop()
	delete(s.leases, key)

	return nil
}

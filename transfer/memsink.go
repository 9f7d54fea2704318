package transfer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/objectzone/zonesync/model"
)

// MemSink is an in-memory Sink, used by tests and as the sink that
// cmd/zonesyncd's start command wires into the daemon. Nothing it holds
// survives a restart.
type MemSink struct {
	mu       sync.Mutex
	objects  map[string][]byte
	tombstones map[string]time.Time
}

func NewMemSink() *MemSink {
	return &MemSink{
		objects:    make(map[string][]byte),
		tombstones: make(map[string]time.Time),
	}
}

func sinkKey(bucket string, key model.ObjectKey, versionedEpoch uint64) string {
	return bucket + "/" + key.Name + "/" + key.Instance
}

func (s *MemSink) Put(ctx context.Context, bucket string, key model.ObjectKey, versionedEpoch uint64, body io.Reader) error {
	data, err := io.ReadAll(body)

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[sinkKey(bucket, key, versionedEpoch)] = data

	return nil
}

func (s *MemSink) Delete(ctx context.Context, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, sinkKey(bucket, key, versionedEpoch))
	s.tombstones[sinkKey(bucket, key, versionedEpoch)] = timestamp

	return nil
}

func (s *MemSink) Get(bucket string, key model.ObjectKey, versionedEpoch uint64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[sinkKey(bucket, key, versionedEpoch)]

	return data, ok
}

func (s *MemSink) IsTombstoned(bucket string, key model.ObjectKey, versionedEpoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tombstones[sinkKey(bucket, key, versionedEpoch)]

	return ok
}

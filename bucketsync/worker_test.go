package bucketsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/stretchr/testify/require"
)

// fakePrimitive is a hand-built double for transfer.Primitive so unit
// tests never make a real network call.
type fakePrimitive struct {
	mu     sync.Mutex
	fetched []model.ObjectKey
	removed []model.ObjectKey
}

func (f *fakePrimitive) Fetch(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, key)

	return nil
}

func (f *fakePrimitive) Remove(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, key)

	return nil
}

// fakeRemote is a hand-built double for remoteapi.Client, the way the
// teacher's sync/bucket_proxy_test.go favors small in-process structs
// over a mocking framework.
type fakeRemote struct {
	maxMarker string
	versions  []remoteapi.VersionedListingEntry
	bilog     []remoteapi.BilogEntryWire
}

func (f *fakeRemote) DataLogNumShards(ctx context.Context) (uint32, error) { return 0, nil }
func (f *fakeRemote) DataLogShardInfo(ctx context.Context, shardID uint32) (remoteapi.DataLogShardInfo, error) {
	return remoteapi.DataLogShardInfo{}, nil
}
func (f *fakeRemote) DataLogEntries(ctx context.Context, shardID uint32, marker string) (remoteapi.DataLogPage, error) {
	return remoteapi.DataLogPage{}, nil
}

func (f *fakeRemote) BucketIndexInfo(ctx context.Context, bucketInstanceKey string) (remoteapi.BucketIndexInfo, error) {
	return remoteapi.BucketIndexInfo{MaxMarker: f.maxMarker}, nil
}

func (f *fakeRemote) BucketIndexLog(ctx context.Context, bucketInstanceKey string, marker string) ([]remoteapi.BilogEntryWire, error) {
	if marker == f.maxMarker || len(f.bilog) == 0 {
		return nil, nil
	}

	out := f.bilog
	f.bilog = nil

	return out, nil
}

func (f *fakeRemote) ListBucketInstances(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeRemote) BucketInstanceMetadata(ctx context.Context, key string) (remoteapi.BucketInstanceMetadata, error) {
	return remoteapi.BucketInstanceMetadata{}, nil
}

func (f *fakeRemote) ListBucketVersions(ctx context.Context, bucket string, bucketInstanceKey string, keyMarker string, versionIDMarker string) (remoteapi.VersionedListingPage, error) {
	if keyMarker != "" || versionIDMarker != "" {
		return remoteapi.VersionedListingPage{Name: bucket, IsTruncated: false}, nil
	}

	entries := f.versions
	f.versions = nil

	return remoteapi.VersionedListingPage{Name: bucket, IsTruncated: false, Entries: entries}, nil
}

func newTestWorker(t *testing.T, remote *fakeRemote, primitive *fakePrimitive) (*Worker, logstore.LogStore) {
	t.Helper()

	store := logstore.NewMemStore()

	w := NewWorker(Config{
		SourceZone: "source",
		ShardKey:   model.BucketShardKey{Bucket: "b", BucketID: "abc", ShardID: -1},
		Store:      store,
		Remote:     remote,
		Transfer:   primitive,
	})

	return w, store
}

func TestWorkerFullSyncThenIncremental(t *testing.T) {
	remote := &fakeRemote{
		maxMarker: "M0",
		versions: []remoteapi.VersionedListingEntry{
			{Key: "k1", VersionID: ""},
			{Key: "k2", VersionID: "v1"},
		},
	}

	primitive := &fakePrimitive{}
	w, store := newTestWorker(t, remote, primitive)

	require.NoError(t, w.Run(context.Background()))

	status, err := loadStatus(store, w.oid)
	require.NoError(t, err)
	require.Equal(t, model.BucketShardIncrementalSync, status.State)
	require.Equal(t, uint64(2), status.FullMark.Count)
}

func TestWorkerSkipsUnversionedAddOfVersionedKey(t *testing.T) {
	remote := &fakeRemote{maxMarker: "M0"}
	primitive := &fakePrimitive{}
	w, _ := newTestWorker(t, remote, primitive)

	task := perObjectTask{key: model.ObjectKey{Name: "k1", Instance: "v1"}, op: model.OpAdd}
	require.NoError(t, w.applyObjectTask(context.Background(), task))

	require.Empty(t, primitive.fetched)
}

func TestWorkerAppliesLinkOLHByFetching(t *testing.T) {
	remote := &fakeRemote{maxMarker: "M0"}
	primitive := &fakePrimitive{}
	w, _ := newTestWorker(t, remote, primitive)

	task := perObjectTask{key: model.ObjectKey{Name: "k1", Instance: "v1"}, op: model.OpLinkOLH, versionedEpoch: 2}

	err := w.applyObjectTask(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, primitive.fetched, 1)
}

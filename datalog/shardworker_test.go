package datalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/objectzone/zonesync/transfer"
	"github.com/stretchr/testify/require"
)

type fakePrimitive struct {
	mu      sync.Mutex
	fetched []model.ObjectKey
}

func (f *fakePrimitive) Fetch(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, key)

	return nil
}

func (f *fakePrimitive) Remove(ctx context.Context, sourceZone string, bucket string, key model.ObjectKey, versionedEpoch uint64, timestamp time.Time) error {
	return nil
}

var _ transfer.Primitive = (*fakePrimitive)(nil)

// fakeDataLogRemote is a hand-built remoteapi.Client double whose
// data-log methods have real behavior and whose bucket-shard methods
// serve one canned versioned listing per bucket instance key.
type fakeDataLogRemote struct {
	mu           sync.Mutex
	shardInfo    remoteapi.DataLogShardInfo
	pages        []remoteapi.DataLogPage
	versionsByID map[string][]remoteapi.VersionedListingEntry
}

func (f *fakeDataLogRemote) DataLogNumShards(ctx context.Context) (uint32, error) { return 1, nil }

func (f *fakeDataLogRemote) DataLogShardInfo(ctx context.Context, shardID uint32) (remoteapi.DataLogShardInfo, error) {
	return f.shardInfo, nil
}

func (f *fakeDataLogRemote) DataLogEntries(ctx context.Context, shardID uint32, marker string) (remoteapi.DataLogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pages) == 0 {
		return remoteapi.DataLogPage{}, nil
	}

	page := f.pages[0]
	f.pages = f.pages[1:]

	return page, nil
}

func (f *fakeDataLogRemote) BucketIndexInfo(ctx context.Context, bucketInstanceKey string) (remoteapi.BucketIndexInfo, error) {
	return remoteapi.BucketIndexInfo{MaxMarker: "M0"}, nil
}

func (f *fakeDataLogRemote) BucketIndexLog(ctx context.Context, bucketInstanceKey string, marker string) ([]remoteapi.BilogEntryWire, error) {
	return nil, nil
}

func (f *fakeDataLogRemote) ListBucketInstances(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeDataLogRemote) BucketInstanceMetadata(ctx context.Context, key string) (remoteapi.BucketInstanceMetadata, error) {
	return remoteapi.BucketInstanceMetadata{}, nil
}

func (f *fakeDataLogRemote) ListBucketVersions(ctx context.Context, bucket string, bucketInstanceKey string, keyMarker string, versionIDMarker string) (remoteapi.VersionedListingPage, error) {
	if keyMarker != "" || versionIDMarker != "" {
		return remoteapi.VersionedListingPage{IsTruncated: false}, nil
	}

	entries := f.versionsByID[bucketInstanceKey]

	return remoteapi.VersionedListingPage{Name: bucket, IsTruncated: false, Entries: entries}, nil
}

func TestShardWorkerFullSyncReplaysIndexThenTransitions(t *testing.T) {
	store := logstore.NewMemStore()

	require.NoError(t, store.OmapAppend(logstore.FullSyncIndexKey("source", 0), []logstore.OmapEntry{
		{Key: "bucket-a:abc"},
	}))

	require.NoError(t, store.Write(logstore.DataShardMarkerKey("source", 0), model.DataShardMarker{
		State:          model.DataLogFullSync,
		NextStepMarker: "seed-marker",
	}))

	remote := &fakeDataLogRemote{
		shardInfo: remoteapi.DataLogShardInfo{Marker: "seed-marker"},
		versionsByID: map[string][]remoteapi.VersionedListingEntry{
			"bucket-a:abc": {{Key: "k1"}},
		},
	}
	primitive := &fakePrimitive{}

	w := NewShardWorker(Config{
		SourceZone: "source",
		ShardID:    0,
		Store:      store,
		Remote:     remote,
		Transfer:   primitive,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.runFullSync(ctx, model.DataShardMarker{NextStepMarker: "seed-marker"})
	cancel()

	require.NoError(t, err)

	var m model.DataShardMarker
	require.NoError(t, store.Read(logstore.DataShardMarkerKey("source", 0), &m))
	require.Equal(t, model.DataLogIncrementalSync, m.State)
	require.Equal(t, "seed-marker", m.Marker)

	require.Len(t, primitive.fetched, 1)
	require.Equal(t, "k1", primitive.fetched[0].Name)
}

func TestShardWorkerWakeupDispatchesWithoutAdvancingMarker(t *testing.T) {
	store := logstore.NewMemStore()

	require.NoError(t, store.Write(logstore.DataShardMarkerKey("source", 0), model.DataShardMarker{
		State:  model.DataLogIncrementalSync,
		Marker: "M0",
	}))

	remote := &fakeDataLogRemote{
		shardInfo: remoteapi.DataLogShardInfo{Marker: "M0"},
		versionsByID: map[string][]remoteapi.VersionedListingEntry{
			"bucket-a:abc": {{Key: "k1"}},
		},
	}
	primitive := &fakePrimitive{}

	w := NewShardWorker(Config{
		SourceZone: "source",
		ShardID:    0,
		Store:      store,
		Remote:     remote,
		Transfer:   primitive,
	})

	w.Wakeup([]string{"bucket-a:abc"})

	ctx := context.Background()

	for _, bucketKey := range w.drainModifiedShards() {
		w.dispatchWakeup(ctx, bucketKey)
	}

	require.NoError(t, w.group.DrainAll(ctx))

	var m model.DataShardMarker
	require.NoError(t, store.Read(logstore.DataShardMarkerKey("source", 0), &m))
	require.Equal(t, "M0", m.Marker, "wake-up dispatch must not advance the persisted cursor")

	require.Len(t, primitive.fetched, 1)
}

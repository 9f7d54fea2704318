package datalog

import (
	"context"
	"testing"

	"github.com/objectzone/zonesync/hash"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/stretchr/testify/require"
)

type fakeMetadataRemote struct {
	instances []string
	metadata  map[string]remoteapi.BucketInstanceMetadata
}

func (f *fakeMetadataRemote) DataLogNumShards(ctx context.Context) (uint32, error) { return 0, nil }
func (f *fakeMetadataRemote) DataLogShardInfo(ctx context.Context, shardID uint32) (remoteapi.DataLogShardInfo, error) {
	return remoteapi.DataLogShardInfo{}, nil
}
func (f *fakeMetadataRemote) DataLogEntries(ctx context.Context, shardID uint32, marker string) (remoteapi.DataLogPage, error) {
	return remoteapi.DataLogPage{}, nil
}
func (f *fakeMetadataRemote) BucketIndexInfo(ctx context.Context, bucketInstanceKey string) (remoteapi.BucketIndexInfo, error) {
	return remoteapi.BucketIndexInfo{}, nil
}
func (f *fakeMetadataRemote) BucketIndexLog(ctx context.Context, bucketInstanceKey string, marker string) ([]remoteapi.BilogEntryWire, error) {
	return nil, nil
}

func (f *fakeMetadataRemote) ListBucketInstances(ctx context.Context) ([]string, error) {
	return f.instances, nil
}

func (f *fakeMetadataRemote) BucketInstanceMetadata(ctx context.Context, key string) (remoteapi.BucketInstanceMetadata, error) {
	return f.metadata[key], nil
}

func (f *fakeMetadataRemote) ListBucketVersions(ctx context.Context, bucket string, bucketInstanceKey string, keyMarker string, versionIDMarker string) (remoteapi.VersionedListingPage, error) {
	return remoteapi.VersionedListingPage{}, nil
}

func TestIndexBuilderAppendsEveryShardAndCountsTotals(t *testing.T) {
	remote := &fakeMetadataRemote{
		instances: []string{"abc", "def"},
		metadata: map[string]remoteapi.BucketInstanceMetadata{
			"abc": withBucketInfo("bucket-a", 2),
			"def": withBucketInfo("bucket-b", 0),
		},
	}

	store := logstore.NewMemStore()

	b := &IndexBuilder{SourceZone: "source", Store: store, Remote: remote, NumDataShards: 4}
	require.NoError(t, b.Build(context.Background()))

	shardA0 := hash.ShardFor(model.BucketShardKey{Bucket: "bucket-a", BucketID: "abc", ShardID: 0}.String(), 4)
	entries, err := store.OmapGet(logstore.FullSyncIndexKey("source", shardA0), "", 100)
	require.NoError(t, err)
	require.Contains(t, keysOf(entries), "bucket-a:abc:0")

	shardB := hash.ShardFor(model.BucketShardKey{Bucket: "bucket-b", BucketID: "def", ShardID: -1}.String(), 4)
	entries, err = store.OmapGet(logstore.FullSyncIndexKey("source", shardB), "", 100)
	require.NoError(t, err)
	require.Contains(t, keysOf(entries), "bucket-b:def")

	var m model.DataShardMarker
	require.NoError(t, store.Read(logstore.DataShardMarkerKey("source", shardB), &m))
	require.Equal(t, uint64(2), m.TotalEntries)
}

func keysOf(entries []logstore.OmapEntry) []string {
	out := make([]string, len(entries))

	for i, e := range entries {
		out[i] = e.Key
	}

	return out
}

func withBucketInfo(bucket string, numShards uint32) remoteapi.BucketInstanceMetadata {
	var m remoteapi.BucketInstanceMetadata
	m.Data.BucketInfo = remoteapi.BucketInfo{Bucket: bucket, NumShards: numShards}

	return m
}

package datalog

import (
	"context"
	"fmt"

	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/hash"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
)

// IndexBuilder is the full-sync index builder (spec.md §4.7, C6): it
// enumerates every bucket instance/shard on the remote zone exactly
// once and records which data-log shard owns each one, so that C4's
// FullSync phase can walk a flat per-shard list instead of re-deriving
// shard ownership from bucket metadata on every run.
type IndexBuilder struct {
	SourceZone    string
	Store         logstore.LogStore
	Remote        remoteapi.Client
	NumDataShards uint32
}

// Build lists every bucket instance, resolves each (instance, shard)
// pair to an owning data-log shard via the same consistent hash the
// remote uses, and appends "<bucket>:<bucket_id>[:<shard_id>]" into that
// shard's FullSyncIndex omap. It records total_entries per data-log
// shard once the sweep completes.
//
// A failure partway through leaves whatever was already appended in
// place — the index is rebuilt from scratch on the next
// BuildingFullSyncMaps pass, so a partial index is never consumed: the
// caller (coordinator) only advances to Sync after Build returns nil.
func (b *IndexBuilder) Build(ctx context.Context) error {
	instances, err := b.Remote.ListBucketInstances(ctx)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "datalog: list bucket instances", err)
	}

	counts := make(map[uint32]uint64, b.NumDataShards)

	for _, instanceKey := range instances {
		meta, err := b.Remote.BucketInstanceMetadata(ctx, instanceKey)

		if err != nil {
			return zonesync.WrapError(zonesync.KindTransient, fmt.Sprintf("datalog: fetch metadata for %q", instanceKey), err)
		}

		info := meta.Data.BucketInfo
		numShards := info.NumShards

		if numShards == 0 {
			key := model.BucketShardKey{Bucket: info.Bucket, BucketID: instanceKey, ShardID: -1}

			if err := b.appendEntry(key, counts); err != nil {
				return err
			}

			continue
		}

		for shard := uint32(0); shard < numShards; shard++ {
			key := model.BucketShardKey{Bucket: info.Bucket, BucketID: instanceKey, ShardID: int32(shard)}

			if err := b.appendEntry(key, counts); err != nil {
				return err
			}
		}
	}

	for shardID, count := range counts {
		if err := b.writeTotalEntries(shardID, count); err != nil {
			return err
		}
	}

	zonesync.Log.Infof("datalog: full-sync index built, %d bucket instances across %d shards", len(instances), len(counts))

	return nil
}

func (b *IndexBuilder) appendEntry(key model.BucketShardKey, counts map[uint32]uint64) error {
	dataShardID := hash.ShardFor(key.String(), b.NumDataShards)
	oid := logstore.FullSyncIndexKey(b.SourceZone, dataShardID)

	err := b.Store.OmapAppend(oid, []logstore.OmapEntry{{Key: key.String()}})

	if err != nil {
		return zonesync.WrapError(zonesync.KindFatal, fmt.Sprintf("datalog: append full-sync index entry %q", key), err)
	}

	counts[dataShardID]++

	return nil
}

func (b *IndexBuilder) writeTotalEntries(shardID uint32, count uint64) error {
	oid := logstore.DataShardMarkerKey(b.SourceZone, shardID)

	var m model.DataShardMarker

	err := b.Store.Read(oid, &m)

	if err != nil && err != logstore.ErrNotFound {
		return zonesync.WrapError(zonesync.KindTransient, "datalog: read shard marker before index totals", err)
	}

	m.TotalEntries = count

	if err := b.Store.Write(oid, m); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "datalog: persist shard marker total_entries", err)
	}

	return nil
}

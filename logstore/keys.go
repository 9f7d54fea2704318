package logstore

import "fmt"

// SyncStatusKey is the object id of the top-level SyncInfo for a source
// zone (spec.md §6, "Sync status").
func SyncStatusKey(sourceZone string) string {
	return fmt.Sprintf("datalog.sync-status.%s", sourceZone)
}

// DataShardMarkerKey is the object id of one data-log shard's
// DataShardMarker (spec.md §6, "Per-shard data sync marker").
func DataShardMarkerKey(sourceZone string, shardID uint32) string {
	return fmt.Sprintf("datalog.sync-status.shard.%s.%d", sourceZone, shardID)
}

// FullSyncIndexKey is the object id of one data-log shard's slice of
// the FullSyncIndex (spec.md §6, "Full-sync index shard").
func FullSyncIndexKey(sourceZone string, shardID uint32) string {
	return fmt.Sprintf("data.full-sync.index.%s.%d", sourceZone, shardID)
}

// BucketShardStatusKey is the object id of one bucket shard's
// BucketShardSyncInfo attribute bundle (spec.md §6, "Per-bucket-shard
// sync status").
func BucketShardStatusKey(sourceZone string, bucketShardKey string) string {
	return fmt.Sprintf("bucket.sync-status.%s:%s", sourceZone, bucketShardKey)
}

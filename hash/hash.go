// Package hash provides the md5-based shard hash function used to
// assign a bucket-instance-shard key to one of the data-log's
// num_shards partitions, the way the full-sync index builder (C6)
// seeds the data log's FullSyncIndex.
package hash

import (
	"crypto/md5"
	"encoding/binary"
)

// ShardFor returns the data-log shard number that owns key, out of
// numShards total shards. The hash is stable across process restarts so
// repeated index builds place the same key in the same shard.
func ShardFor(key string, numShards uint32) uint32 {
	if numShards == 0 {
		return 0
	}

	sum := md5.Sum([]byte(key))
	high := binary.BigEndian.Uint64(sum[0:8])

	return uint32(high % uint64(numShards))
}

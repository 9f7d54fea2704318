package model

import (
	"fmt"
	"strconv"
	"strings"
)

// BucketShardKey identifies one shard of one bucket instance: the unit
// that a data-log entry fans out to and that a bucket-shard sync worker
// owns. ShardID is -1 for an unsharded bucket instance.
type BucketShardKey struct {
	Bucket   string
	BucketID string
	ShardID  int32
}

// String renders the key in the "<bucket>:<bucket_id>[:<shard_id>]" form
// used throughout the full-sync index and data-log entries.
func (k BucketShardKey) String() string {
	if k.ShardID < 0 {
		return fmt.Sprintf("%s:%s", k.Bucket, k.BucketID)
	}

	return fmt.Sprintf("%s:%s:%d", k.Bucket, k.BucketID, k.ShardID)
}

// ParseBucketShardKey parses the raw key format produced by the full-sync
// index builder and the remote data log.
func ParseBucketShardKey(raw string) (BucketShardKey, error) {
	parts := strings.Split(raw, ":")

	switch len(parts) {
	case 2:
		return BucketShardKey{Bucket: parts[0], BucketID: parts[1], ShardID: -1}, nil
	case 3:
		shardID, err := strconv.ParseInt(parts[2], 10, 32)

		if err != nil {
			return BucketShardKey{}, fmt.Errorf("invalid shard id in bucket shard key %q: %w", raw, err)
		}

		return BucketShardKey{Bucket: parts[0], BucketID: parts[1], ShardID: int32(shardID)}, nil
	default:
		return BucketShardKey{}, fmt.Errorf("malformed bucket shard key %q", raw)
	}
}

package hash

import "testing"

func TestShardForIsStable(t *testing.T) {
	a := ShardFor("bucket1:abc", 8)
	b := ShardFor("bucket1:abc", 8)

	if a != b {
		t.Fatalf("expected stable shard assignment, got %d and %d", a, b)
	}

	if a >= 8 {
		t.Fatalf("shard %d out of range for 8 shards", a)
	}
}

func TestShardForDistributesAcrossShards(t *testing.T) {
	seen := make(map[uint32]bool)

	for i := 0; i < 64; i++ {
		key := "bucket:" + string(rune('a'+i%26)) + string(rune('A'+i%13))
		seen[ShardFor(key, 4)] = true
	}

	if len(seen) < 2 {
		t.Fatalf("expected keys to spread across more than one shard, got %v", seen)
	}
}

func TestShardForZeroShards(t *testing.T) {
	if ShardFor("x", 0) != 0 {
		t.Fatalf("expected 0 shards to default to shard 0")
	}
}

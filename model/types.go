// Package model defines the persistent data shapes shared by every
// replication component: sync status, per-shard markers, and the
// full-sync index entries that seed a data-log shard's bootstrap sweep.
package model

import "time"

// SyncState is the top-level state of a source zone's replication.
type SyncState int

const (
	StateInit SyncState = iota
	StateBuildingFullSyncMaps
	StateSync
)

func (s SyncState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateBuildingFullSyncMaps:
		return "BuildingFullSyncMaps"
	case StateSync:
		return "Sync"
	default:
		return "Unknown"
	}
}

// SyncInfo is the one-per-source-zone top level sync status record.
type SyncInfo struct {
	State     SyncState `json:"state"`
	NumShards uint32    `json:"num_shards"`
}

// DataLogShardState is the state of one partition of the remote data log.
type DataLogShardState int

const (
	DataLogFullSync DataLogShardState = iota
	DataLogIncrementalSync
)

func (s DataLogShardState) String() string {
	if s == DataLogFullSync {
		return "FullSync"
	}
	return "IncrementalSync"
}

// DataShardMarker is the persisted resume point for one data-log shard.
type DataShardMarker struct {
	State          DataLogShardState `json:"state"`
	Marker         string            `json:"marker"`
	NextStepMarker string            `json:"next_step_marker"`
	Pos            uint64            `json:"pos"`
	TotalEntries   uint64            `json:"total_entries"`
	Timestamp      time.Time         `json:"timestamp"`
}

// BucketShardState is the state of one bucket shard's replication.
type BucketShardState int

const (
	BucketShardInit BucketShardState = iota
	BucketShardFullSync
	BucketShardIncrementalSync
)

func (s BucketShardState) String() string {
	switch s {
	case BucketShardInit:
		return "Init"
	case BucketShardFullSync:
		return "FullSync"
	case BucketShardIncrementalSync:
		return "IncrementalSync"
	default:
		return "Unknown"
	}
}

// FullMarker records progress through the versioned listing during full sync.
type FullMarker struct {
	Position  ObjectKey `json:"position"`
	Count     uint64    `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// IncMarker records the bilog cursor consumed during incremental sync.
type IncMarker struct {
	Position string `json:"position"`
}

// BucketShardSyncInfo is the per (source zone, bucket, shard) sync status,
// persisted as an attribute bundle with independently writable fields.
type BucketShardSyncInfo struct {
	State     BucketShardState `json:"state"`
	FullMark  FullMarker       `json:"full_marker"`
	IncMark   IncMarker        `json:"inc_marker"`
}

// ObjectKey identifies an object or a specific version of an object.
// Instance "" or "null" denotes the unversioned object.
type ObjectKey struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
}

// IsVersioned reports whether this key names a specific object version
// rather than the unversioned head of the object.
func (k ObjectKey) IsVersioned() bool {
	return k.Instance != "" && k.Instance != "null"
}

// BilogOp is the operation recorded against an object in a bucket-index log.
type BilogOp int

const (
	OpAdd BilogOp = iota
	OpDel
	OpLinkOLH
)

func (op BilogOp) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpDel:
		return "Del"
	case OpLinkOLH:
		return "LinkOLH"
	default:
		return "Unknown"
	}
}

// VersionedEpoch identifies a specific version of an object; it is
// monotonically increasing per object.
type VersionedEpoch uint64

// BilogEntry is one object-level mutation record from a bucket-index log.
type BilogEntry struct {
	ID             string
	Key            ObjectKey
	Timestamp      time.Time
	Op             BilogOp
	VersionedEpoch VersionedEpoch
}

// DataLogEntry is one bucket-level change record from the top-level data log.
type DataLogEntry struct {
	LogID        string
	LogTimestamp time.Time
	Key          string // "<bucket>:<bucket_id>[:<shard_id>]"
}

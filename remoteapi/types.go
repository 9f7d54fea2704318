// Package remoteapi is the HTTP admin/REST client to the source zone
// (spec.md §6, "Remote client"): the four JSON-encoded endpoint groups
// that the replication engine consumes. It is an external collaborator
// per spec.md §1 — this package is the interface zonesync programs
// against, grounded on the teacher's client/api_client.go HTTP-JSON
// pattern.
package remoteapi

import "time"

// DataLogShardCount is the response to GET /admin/log?type=data.
type DataLogShardCount struct {
	NumObjects uint32 `json:"num_objects"`
}

// DataLogShardInfo is the response to
// GET /admin/log?type=data&id=<shard>&info.
type DataLogShardInfo struct {
	Marker     string    `json:"marker"`
	LastUpdate time.Time `json:"last_update"`
}

// DataLogEntryWire is one entry within a data log page.
type DataLogEntryWire struct {
	LogID        string    `json:"log_id"`
	LogTimestamp time.Time `json:"log_timestamp"`
	Entry        struct {
		Key string `json:"key"`
	} `json:"entry"`
}

// DataLogPage is the response to
// GET /admin/log?type=data&id=<shard>&marker=<m>&extra-info=true.
type DataLogPage struct {
	Marker    string             `json:"marker"`
	Truncated bool               `json:"truncated"`
	Entries   []DataLogEntryWire `json:"entries"`
}

// BucketIndexInfo is the response to
// GET /admin/log?type=bucket-index&bucket-instance=<key>&info.
type BucketIndexInfo struct {
	BucketVer string `json:"bucket_ver"`
	MasterVer string `json:"master_ver"`
	MaxMarker string `json:"max_marker"`
}

// BilogVer identifies the storage pool/epoch backing a bilog entry.
type BilogVer struct {
	Pool  string `json:"pool"`
	Epoch uint64 `json:"epoch"`
}

// BilogEntryWire is one entry of a bucket-index log page, the response
// to GET /admin/log?type=bucket-index&bucket-instance=<key>&marker=<m>.
type BilogEntryWire struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
	Op        string    `json:"op"`
	Ver       BilogVer  `json:"ver"`
}

// BucketInstanceKey is one entry of GET /admin/metadata/bucket.instance.
type BucketInstanceKey = string

// BucketInfo is the nested bucket_info payload of a bucket instance
// metadata response.
type BucketInfo struct {
	Bucket    string `json:"bucket"`
	NumShards uint32 `json:"num_shards"`
}

// BucketInstanceMetadata is the response to
// GET /admin/metadata/bucket.instance?key=<k>.
type BucketInstanceMetadata struct {
	Key  string    `json:"key"`
	Ver  string    `json:"ver"`
	Mtime time.Time `json:"mtime"`
	Data struct {
		BucketInfo BucketInfo `json:"bucket_info"`
	} `json:"data"`
}

// VersionedListingOwner is the owner field of a versioned listing entry.
type VersionedListingOwner struct {
	ID          string `json:"ID"`
	DisplayName string `json:"DisplayName"`
}

// VersionedListingEntry is one entry of the versioned listing response.
type VersionedListingEntry struct {
	IsDeleteMarker bool                   `json:"IsDeleteMarker"`
	Key            string                 `json:"Key"`
	VersionID      string                 `json:"VersionId"`
	IsLatest       bool                   `json:"IsLatest"`
	LastModified   time.Time              `json:"LastModified"`
	ETag           string                 `json:"ETag"`
	Size           int64                  `json:"Size"`
	StorageClass   string                 `json:"StorageClass"`
	Owner          VersionedListingOwner  `json:"Owner"`
	VersionedEpoch uint64                 `json:"VersionedEpoch"`
	RgwxTag        string                 `json:"RgwxTag"`
}

// VersionedListingPage is the response to the versioned listing
// endpoint (§6, "/<bucket>?...&versions&...").
type VersionedListingPage struct {
	Name        string                  `json:"name"`
	IsTruncated bool                    `json:"is_truncated"`
	Entries     []VersionedListingEntry `json:"entries"`
}

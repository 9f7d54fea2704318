// Package logstore implements the marker store (spec.md §4.1, C1):
// durable read/write of per-shard sync markers, attribute bundles for
// the bucket-shard status objects, a sorted-key omap for the full-sync
// index, and advisory leases used only during the one-time init
// sequences in spec.md §4.3.1 and §4.6. The underlying key-value engine
// itself (§1, "log store") is an external collaborator; this package is
// the layer callers actually program against.
package logstore

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Read and ReadAttrs when the object id has
// never been written.
var ErrNotFound = errors.New("logstore: not found")

// ErrLeaseHeld is returned by Lock when another cookie currently holds
// the named lease on an object id.
var ErrLeaseHeld = errors.New("logstore: lease held by another cookie")

// ErrLeaseNotHeld is returned by Unlock when cookie does not hold the
// named lease on an object id (already expired, or never acquired).
var ErrLeaseNotHeld = errors.New("logstore: lease not held by this cookie")

// OmapEntry is one entry of a sorted-key secondary index, used by the
// full-sync index (spec.md §3 FullSyncIndex, §6 omap_append).
type OmapEntry struct {
	Key   string
	Value []byte
}

// LogStore is the full contract spec.md §4.1/§6 requires: typed
// read/write of a single value per object id, an independently
// read/writable attribute bundle per object id (used for
// BucketShardSyncInfo, spec.md §3), a sorted-key omap per object id
// (used for the FullSyncIndex), and advisory leases.
type LogStore interface {
	// Read unmarshals the JSON-encoded value stored at oid into out.
	// Returns ErrNotFound if oid has never been written.
	Read(oid string, out interface{}) error
	// Write JSON-encodes value and stores it at oid, last-writer-wins.
	Write(oid string, value interface{}) error

	// ReadAttrs returns the attribute bundle stored at oid. Returns
	// ErrNotFound if oid has never had attributes written.
	ReadAttrs(oid string) (map[string][]byte, error)
	// WriteAttrs merges attrs into the bundle stored at oid, writing
	// only the keys present in attrs (so state/full_marker/inc_marker
	// can be updated independently, per spec.md §3).
	WriteAttrs(oid string, attrs map[string][]byte) error

	// OmapGet returns up to max entries at or after fromKey, ordered by
	// key, from the omap stored at oid.
	OmapGet(oid string, fromKey string, max int) ([]OmapEntry, error)
	// OmapAppend inserts or overwrites entries in the omap stored at oid.
	OmapAppend(oid string, entries []OmapEntry) error

	// Lock acquires a cooperative, TTL-bound lease named leaseName on
	// oid, identified by cookie. Returns ErrLeaseHeld if another
	// cookie currently holds it.
	Lock(oid string, leaseName string, cookie string, ttl time.Duration) error
	// Unlock releases a lease previously acquired with the same
	// cookie. Returns ErrLeaseNotHeld if cookie does not hold it.
	Unlock(oid string, leaseName string, cookie string) error
}

func encode(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func decode(raw []byte, out interface{}) error {
	return json.Unmarshal(raw, out)
}

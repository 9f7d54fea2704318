// Package marker implements the shard marker tracker (spec.md §4.2, C2):
// an in-memory window that tracks which per-entry markers are
// in-flight and emits a persist operation once a contiguous prefix of
// markers has completed. One generic type serves both the data-log
// tracker (key type string) and the bucket-shard tracker (key type
// model.ObjectKey), per spec.md §9's note that the two variants share
// one capability set.
package marker

import "sync"

// Ordered is anything the tracker can order markers by; both the
// data-log resume position (a string) and a bucket-shard listing
// continuation marker qualify, since the tracker only ever needs to
// find the oldest of a small in-flight set, not to compare two markers
// for arbitrary precedence.
type Ordered interface {
	comparable
}

type entry struct {
	index int64
}

// Tracker tracks in-flight markers for one shard (data-log or
// bucket-shard) and serializes concurrent work that targets the same
// dedup key via IndexKeyToMarker, enforcing invariant I5: at most one
// in-flight replication task per bucket shard per process.
type Tracker[M Ordered] struct {
	mu sync.Mutex

	window int
	seq    int64

	inFlight    map[M]int64
	completedBy map[int64]M
	oldestSeq   int64

	inFlightByKey map[string]M
	needsRetry    map[string]bool
}

// PersistOp is emitted by Finish when the oldest outstanding marker
// completes: it carries the marker position the tracker's owner should
// now persist. Marker is the highest marker whose entire contiguous
// prefix (by spawn order) has completed.
type PersistOp[M Ordered] struct {
	Marker M
}

// NewTracker creates a tracker with the given in-flight window size
// (design target 1 for data-log trackers, 10 for bucket-shard trackers;
// spec.md §4.2). The size is only recorded and reported by Window;
// Start never blocks or refuses a marker when the window is full.
func NewTracker[M Ordered](window int) *Tracker[M] {
	return &Tracker[M]{
		window:        window,
		inFlight:      make(map[M]int64),
		completedBy:   make(map[int64]M),
		inFlightByKey: make(map[string]M),
		needsRetry:    make(map[string]bool),
	}
}

// Window returns the configured in-flight window size.
func (t *Tracker[M]) Window() int {
	return t.window
}

// Start records that work for marker has begun. It assigns the marker
// an internal sequence number, used only to find contiguous
// completions.
func (t *Tracker[M]) Start(marker M) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.inFlight[marker] = t.seq

	if len(t.inFlight) == 1 {
		t.oldestSeq = t.seq
	}
}

// Finish records that marker has completed. If marker was the oldest
// outstanding entry, Finish returns a PersistOp advancing the stored
// position to the highest contiguous completed marker; otherwise it
// returns false, per invariant I6: writes proceed in-order per shard,
// the tracker holds back the persisted position until every earlier
// entry completes.
func (t *Tracker[M]) Finish(marker M) (PersistOp[M], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq, ok := t.inFlight[marker]

	if !ok {
		return PersistOp[M]{}, false
	}

	delete(t.inFlight, marker)
	t.completedBy[seq] = marker

	if seq != t.oldestSeq {
		return PersistOp[M]{}, false
	}

	// marker was the oldest in-flight entry: advance through every
	// contiguous completed sequence number starting here.
	var last M
	var advanced bool

	for {
		m, done := t.completedBy[t.oldestSeq]

		if !done {
			break
		}

		delete(t.completedBy, t.oldestSeq)
		last = m
		advanced = true
		t.oldestSeq++
	}

	if !advanced {
		return PersistOp[M]{}, false
	}

	return PersistOp[M]{Marker: last}, true
}

// IndexKeyToMarker records that marker is currently being processed for
// bucketKey. It returns false if another marker is already in flight
// for the same bucketKey — enforcing invariant I5 — and in that case
// also marks bucketKey as needing a retry once the in-flight marker
// completes, so no work slips through the gap between the dedup
// decision and that completion (spec.md §4.2 rationale).
func (t *Tracker[M]) IndexKeyToMarker(bucketKey string, marker M) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, inFlight := t.inFlightByKey[bucketKey]; inFlight {
		t.needsRetry[bucketKey] = true

		return false
	}

	t.inFlightByKey[bucketKey] = marker

	return true
}

// ReleaseKey clears the in-flight marker recorded for bucketKey,
// allowing a subsequent IndexKeyToMarker call for the same key to
// succeed. Callers release once the dispatched work for that marker has
// finished (successfully or not).
func (t *Tracker[M]) ReleaseKey(bucketKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.inFlightByKey, bucketKey)
}

// NeedRetry reports whether bucketKey was rejected by IndexKeyToMarker
// while another marker was in flight for it.
func (t *Tracker[M]) NeedRetry(bucketKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.needsRetry[bucketKey]
}

// ResetNeedRetry clears the retry flag for bucketKey.
func (t *Tracker[M]) ResetNeedRetry(bucketKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.needsRetry, bucketKey)
}

// InFlightCount returns the number of markers currently started but not
// finished. The tracker does not compare it against Window() itself.
func (t *Tracker[M]) InFlightCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.inFlight)
}

// Package datalog implements the data-log shard worker (spec.md §4.4,
// C4) and the full-sync index builder (spec.md §4.7, C6). A ShardWorker
// owns one partition of the remote data log end to end: it replays the
// full-sync index once, then follows the live data log forever,
// dispatching each entry to a bucket-shard sync worker and serializing
// concurrent dispatches to the same bucket shard through its own C2
// tracker instance.
package datalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/marker"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/objectzone/zonesync/task"
	"github.com/objectzone/zonesync/transfer"
)

// BatchSize is the number of entries fetched per poll of either the
// full-sync index omap or the live data log (spec.md §4.4/§5).
const BatchSize = 100

// PollInterval is the default sleep between IncrementalSync polls when
// the remote has no new entries (spec.md §4.4 step iv).
const PollInterval = 20 * time.Second

// MarkerWindow is the default number of in-flight data-log markers this
// shard worker's tracker will track at once (spec.md §4.2).
const MarkerWindow = 1

// Config wires one ShardWorker to its external collaborators.
type Config struct {
	SourceZone string
	ShardID    uint32
	Store      logstore.LogStore
	Remote     remoteapi.Client
	Transfer   transfer.Primitive

	BatchSize    int
	PollInterval time.Duration
	MarkerWindow int

	// BucketShardSpawnWindow and BucketShardMarkerWindow are forwarded
	// into every bucketsync.Worker this shard worker's entry tasks
	// construct (spec.md §4.3.3/§4.2), so the configured bucket-shard
	// concurrency and marker-tracking bounds actually reach the workers
	// that enforce them.
	BucketShardSpawnWindow  int
	BucketShardMarkerWindow int
}

// ShardWorker drives one data-log shard through FullSync and then an
// unbounded IncrementalSync loop.
type ShardWorker struct {
	cfg Config
	oid string

	tracker *marker.Tracker[string]
	group   *task.Group
	waiter  *task.Waiter

	mu             sync.Mutex
	modifiedShards map[string]struct{}
}

// NewShardWorker builds a ShardWorker for one data-log shard.
func NewShardWorker(cfg Config) *ShardWorker {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = BatchSize
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = PollInterval
	}

	if cfg.MarkerWindow == 0 {
		cfg.MarkerWindow = MarkerWindow
	}

	return &ShardWorker{
		cfg:            cfg,
		oid:            logstore.DataShardMarkerKey(cfg.SourceZone, cfg.ShardID),
		tracker:        marker.NewTracker[string](cfg.MarkerWindow),
		group:          task.NewGroup(),
		waiter:         task.NewWaiter(),
		modifiedShards: make(map[string]struct{}),
	}
}

// Wakeup records that keys changed locally for this shard's source
// zone and cuts short any pending poll sleep, per spec.md §4.6.
func (w *ShardWorker) Wakeup(keys []string) {
	w.mu.Lock()
	for _, k := range keys {
		w.modifiedShards[k] = struct{}{}
	}
	w.mu.Unlock()

	w.waiter.Wakeup()
}

func (w *ShardWorker) drainModifiedShards() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.modifiedShards) == 0 {
		return nil
	}

	keys := make([]string, 0, len(w.modifiedShards))

	for k := range w.modifiedShards {
		keys = append(keys, k)
	}

	w.modifiedShards = make(map[string]struct{})

	return keys
}

func (w *ShardWorker) loadMarker() (model.DataShardMarker, error) {
	var m model.DataShardMarker

	err := w.cfg.Store.Read(w.oid, &m)

	if err == logstore.ErrNotFound {
		return m, nil
	}

	return m, err
}

func (w *ShardWorker) writeMarker(m model.DataShardMarker) error {
	return w.cfg.Store.Write(w.oid, m)
}

// Run advances this shard through FullSync if needed, then runs the
// IncrementalSync loop until ctx is cancelled.
func (w *ShardWorker) Run(ctx context.Context) error {
	defer w.group.DrainAll(context.Background())

	m, err := w.loadMarker()

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "datalog: load shard marker", err)
	}

	if m.State == model.DataLogFullSync {
		if err := w.runFullSync(ctx, m); err != nil {
			return err
		}

		m, err = w.loadMarker()

		if err != nil {
			return zonesync.WrapError(zonesync.KindTransient, "datalog: reload shard marker", err)
		}
	}

	return w.runIncrementalLoop(ctx, m)
}

// runFullSync replays the FullSyncIndex omap for this shard in pages of
// BatchSize, resuming from the persisted marker, then transitions the
// shard to IncrementalSync per spec.md §4.4.
func (w *ShardWorker) runFullSync(ctx context.Context, m model.DataShardMarker) error {
	oid := logstore.FullSyncIndexKey(w.cfg.SourceZone, w.cfg.ShardID)

	fromKey := m.Marker

	for {
		page, err := w.cfg.Store.OmapGet(oid, fromKey, w.cfg.BatchSize)

		if err != nil {
			w.group.DrainAll(ctx)

			return zonesync.WrapError(zonesync.KindTransient, "datalog: read full-sync index", err)
		}

		entries := page

		// OmapGet is inclusive of fromKey, so every page after a resume
		// point or a previous page starts with a key already dispatched.
		if fromKey != "" && len(entries) > 0 && entries[0].Key == fromKey {
			entries = entries[1:]
		}

		for _, e := range entries {
			w.tracker.Start(e.Key)
			fromKey = e.Key

			rawKey, entryMarker := e.Key, e.Key
			w.group.Spawn(ctx, func(ctx context.Context) error {
				return w.runEntryTask(ctx, rawKey, entryMarker)
			}, false)
		}

		if len(page) < w.cfg.BatchSize {
			break
		}
	}

	if err := w.group.DrainAll(ctx); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "datalog: drain full-sync tasks", err)
	}

	next := model.DataShardMarker{
		State:          model.DataLogIncrementalSync,
		Marker:         m.NextStepMarker,
		NextStepMarker: "",
		TotalEntries:   m.TotalEntries,
		Timestamp:      time.Now(),
	}

	if err := w.writeMarker(next); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "datalog: persist IncrementalSync transition", err)
	}

	zonesync.Log.Infof("datalog[%d]: full sync complete, marker=%q", w.cfg.ShardID, next.Marker)

	return nil
}

// runIncrementalLoop is the long-running loop of spec.md §4.4: drain
// wake-up keys, poll the remote shard, fetch and dispatch new entries,
// and sleep (cancellably) when there is no progress to make.
func (w *ShardWorker) runIncrementalLoop(ctx context.Context, m model.DataShardMarker) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for _, bucketKey := range w.drainModifiedShards() {
			w.dispatchWakeup(ctx, bucketKey)
		}

		info, err := w.cfg.Remote.DataLogShardInfo(ctx, w.cfg.ShardID)

		if err != nil {
			zonesync.Log.Warningf("datalog[%d]: fetch shard info failed: %v", w.cfg.ShardID, err)

			if err := w.waiter.Wait(ctx, w.cfg.PollInterval); err != nil {
				return err
			}

			continue
		}

		if info.Marker == m.Marker {
			zonesync.DataLogShardLag.WithLabelValues(strconv.FormatUint(uint64(w.cfg.ShardID), 10)).Set(0)

			if err := w.waiter.Wait(ctx, w.cfg.PollInterval); err != nil {
				return err
			}

			continue
		}

		zonesync.DataLogShardLag.WithLabelValues(strconv.FormatUint(uint64(w.cfg.ShardID), 10)).Set(1)

		page, err := w.cfg.Remote.DataLogEntries(ctx, w.cfg.ShardID, m.Marker)

		if err != nil {
			zonesync.Log.Warningf("datalog[%d]: fetch entries failed: %v", w.cfg.ShardID, err)

			if err := w.waiter.Wait(ctx, w.cfg.PollInterval); err != nil {
				return err
			}

			continue
		}

		for _, e := range page.Entries {
			if !w.tracker.IndexKeyToMarker(e.Entry.Key, e.LogID) {
				continue
			}

			w.tracker.Start(e.LogID)

			rawKey, entryMarker := e.Entry.Key, e.LogID
			w.group.Spawn(ctx, func(ctx context.Context) error {
				return w.runEntryTask(ctx, rawKey, entryMarker)
			}, true)

			m.Marker = e.LogID
		}

		if len(page.Entries) == 0 {
			if err := w.waiter.Wait(ctx, w.cfg.PollInterval); err != nil {
				return err
			}
		}
	}
}

func (w *ShardWorker) dispatchWakeup(ctx context.Context, bucketKey string) {
	dedupMarker := "wakeup:" + bucketKey

	if !w.tracker.IndexKeyToMarker(bucketKey, dedupMarker) {
		return
	}

	w.group.Spawn(ctx, func(ctx context.Context) error {
		return w.runEntryTask(ctx, bucketKey, "")
	}, true)
}

// Package bucketsync implements the bucket-shard sync worker (spec.md
// §4.3, C3): the two-phase state machine that mirrors one bucket
// shard's contents (FullSync) and then follows its bilog
// (IncrementalSync), fanning out bounded-concurrency per-object tasks
// that drive the transfer primitive.
package bucketsync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/marker"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/objectzone/zonesync/task"
	"github.com/objectzone/zonesync/transfer"
)

// SpawnWindow is the default number of concurrent per-object tasks a
// worker runs at once (spec.md §4.3.3).
const SpawnWindow = 20

// MarkerWindow is the default window size handed to the full-sync and
// incremental-sync trackers (spec.md §4.2). The trackers record it but
// do not limit how many markers are in flight; concurrency is bounded
// by SpawnWindow.
const MarkerWindow = 10

const initLeaseName = "bucket-shard-init"

// Config wires one Worker to its external collaborators.
type Config struct {
	SourceZone string
	ShardKey   model.BucketShardKey
	Store      logstore.LogStore
	Remote     remoteapi.Client
	Transfer   transfer.Primitive

	SpawnWindow  int
	MarkerWindow int
	LeaseTTL     time.Duration
	MaxBackoff   time.Duration
}

// Worker drives one bucket shard through Init -> FullSync ->
// IncrementalSync. A single Run call advances the shard as far as it
// can without blocking indefinitely: it completes any pending phase
// transition, then runs one incremental pass to the head of the bilog.
// Callers (datalog's per-entry task, spec.md §4.5) re-invoke Run each
// time new work is dispatched to this bucket shard.
type Worker struct {
	cfg Config
	oid string

	fullTracker *marker.Tracker[model.ObjectKey]
	incTracker  *marker.Tracker[string]
}

// NewWorker builds a Worker for one bucket shard.
func NewWorker(cfg Config) *Worker {
	if cfg.SpawnWindow == 0 {
		cfg.SpawnWindow = SpawnWindow
	}

	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = 30 * time.Second
	}

	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	if cfg.MarkerWindow == 0 {
		cfg.MarkerWindow = MarkerWindow
	}

	return &Worker{
		cfg:         cfg,
		oid:         logstore.BucketShardStatusKey(cfg.SourceZone, cfg.ShardKey.String()),
		fullTracker: marker.NewTracker[model.ObjectKey](cfg.MarkerWindow),
		incTracker:  marker.NewTracker[string](cfg.MarkerWindow),
	}
}

// Run advances this bucket shard's state machine by at most one
// full-sync-to-incremental transition plus one incremental pass.
func (w *Worker) Run(ctx context.Context) error {
	status, err := loadStatus(w.cfg.Store, w.oid)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: load status", err)
	}

	if status.State == model.BucketShardInit {
		if err := w.runInit(ctx); err != nil {
			return err
		}

		status.State = model.BucketShardFullSync
	}

	if status.State == model.BucketShardFullSync {
		if err := w.runFullSync(ctx); err != nil {
			return err
		}

		status.State = model.BucketShardIncrementalSync
	}

	return w.runIncrementalPass(ctx)
}

// runInit performs the one-time bootstrap of §4.3.1: snapshot the
// remote bilog's current marker before the full listing starts, so
// incremental sync is guaranteed not to miss anything that happened
// during the listing.
func (w *Worker) runInit(ctx context.Context) error {
	cookie := uuid.New().String()

	if err := w.cfg.Store.Lock(w.oid, initLeaseName, cookie, w.cfg.LeaseTTL); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: acquire init lease", err)
	}

	defer w.cfg.Store.Unlock(w.oid, initLeaseName, cookie)

	if err := writeInitStatus(w.cfg.Store, w.oid); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "bucketsync: write init status", err)
	}

	// The status object was just (re)created; the underlying store may
	// have dropped the lease along with it, so reacquire before the
	// final attribute write.
	if err := w.cfg.Store.Lock(w.oid, initLeaseName, cookie, w.cfg.LeaseTTL); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: reacquire init lease", err)
	}

	info, err := w.cfg.Remote.BucketIndexInfo(ctx, w.cfg.ShardKey.String())

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: fetch bucket index info", err)
	}

	if err := writeState(w.cfg.Store, w.oid, model.BucketShardFullSync); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "bucketsync: persist FullSync state", err)
	}

	if err := writeIncMarker(w.cfg.Store, w.oid, model.IncMarker{Position: info.MaxMarker}); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "bucketsync: persist inc marker snapshot", err)
	}

	zonesync.Log.Infof("bucketsync[%s]: initialized, snapshot marker=%q", w.cfg.ShardKey, info.MaxMarker)

	return nil
}

// runFullSync lists the remote bucket shard to exhaustion, fanning out
// a per-object task per entry, then drains and transitions to
// IncrementalSync per spec.md §4.3.
func (w *Worker) runFullSync(ctx context.Context) error {
	zonesync.BucketShardsInFlight.Inc()
	defer zonesync.BucketShardsInFlight.Dec()

	group := task.NewGroup()
	inFlight := 0

	startStatus, err := loadStatus(w.cfg.Store, w.oid)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: load status", err)
	}

	counter := new(atomic.Uint64)
	counter.Store(startStatus.FullMark.Count)

	keyMarker, versionIDMarker := "", ""
	listed := uint64(0)

	for {
		page, err := w.cfg.Remote.ListBucketVersions(ctx, w.cfg.ShardKey.Bucket, w.cfg.ShardKey.String(), keyMarker, versionIDMarker)

		if err != nil {
			group.DrainAll(ctx)

			return zonesync.WrapError(zonesync.KindTransient, "bucketsync: list bucket versions", err)
		}

		for _, entry := range page.Entries {
			objKey := model.ObjectKey{Name: entry.Key, Instance: entry.VersionID}
			op := bilogOpFor(entry)

			w.fullTracker.Start(objKey)
			listed++

			if inFlight >= w.cfg.SpawnWindow {
				if _, err := group.WaitForChild(ctx); err != nil {
					return err
				}

				inFlight--
			}

			objTask := perObjectTask{
				key:            objKey,
				op:             op,
				versionedEpoch: entry.VersionedEpoch,
				timestamp:      entry.LastModified,
			}

			group.Spawn(ctx, func(ctx context.Context) error {
				return w.runFullSyncObjectTask(ctx, objTask, counter)
			}, false)
			inFlight++
		}

		if !page.IsTruncated {
			break
		}

		if len(page.Entries) > 0 {
			last := page.Entries[len(page.Entries)-1]
			keyMarker = last.Key
			versionIDMarker = last.VersionID
		}
	}

	if err := group.DrainAll(ctx); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: drain full sync tasks", err)
	}

	if err := writeState(w.cfg.Store, w.oid, model.BucketShardIncrementalSync); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "bucketsync: persist IncrementalSync transition", err)
	}

	zonesync.Log.Infof("bucketsync[%s]: full sync complete, %d entries listed", w.cfg.ShardKey, listed)

	return nil
}

// runIncrementalPass follows the bilog from the persisted inc_marker
// position until the remote returns an empty page, then returns
// control to the caller without sleeping (spec.md §4.3: the polling
// cadence belongs to the surrounding data-log shard worker).
func (w *Worker) runIncrementalPass(ctx context.Context) error {
	status, err := loadStatus(w.cfg.Store, w.oid)

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: load status", err)
	}

	group := task.NewGroup()
	inFlight := 0
	position := status.IncMark.Position

	for {
		entries, err := w.cfg.Remote.BucketIndexLog(ctx, w.cfg.ShardKey.String(), position)

		if err != nil {
			group.DrainAll(ctx)

			return zonesync.WrapError(zonesync.KindTransient, "bucketsync: list bucket index log", err)
		}

		if len(entries) == 0 {
			break
		}

		for _, wireEntry := range entries {
			w.incTracker.Start(wireEntry.ID)

			if inFlight >= w.cfg.SpawnWindow {
				if _, err := group.WaitForChild(ctx); err != nil {
					return err
				}

				inFlight--
			}

			entry := wireEntry
			group.Spawn(ctx, func(ctx context.Context) error {
				return w.runIncrementalObjectTask(ctx, entry)
			}, false)
			inFlight++

			position = entry.ID
		}
	}

	if err := group.DrainAll(ctx); err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "bucketsync: drain incremental tasks", err)
	}

	return nil
}

func bilogOpFor(entry remoteapi.VersionedListingEntry) model.BilogOp {
	if entry.IsDeleteMarker {
		return model.OpDel
	}

	if entry.VersionID != "" && entry.VersionID != "null" {
		return model.OpLinkOLH
	}

	return model.OpAdd
}

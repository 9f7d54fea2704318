// Package coordinator implements the data-sync coordinator (spec.md
// §4.6, C5): the per-source-zone top-level state machine that bootstraps
// SyncInfo, builds the full-sync index once, and then owns one
// ShardWorker per data-log shard for the lifetime of the process,
// routing local-write wake-ups to the shard that owns the affected
// bucket key.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/datalog"
	"github.com/objectzone/zonesync/hash"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/objectzone/zonesync/task"
	"github.com/objectzone/zonesync/transfer"
)

const initLeaseName = "sync-status-init"

// Config wires one Coordinator to its external collaborators.
type Config struct {
	SourceZone string
	Store      logstore.LogStore
	Remote     remoteapi.Client
	Transfer   transfer.Primitive

	LeaseTTL            time.Duration
	DataLogBatchSize    int
	DataLogPollInterval time.Duration
	DataLogMarkerWindow int

	// BucketShardSpawnWindow and BucketShardMarkerWindow are forwarded
	// through every datalog.ShardWorker this coordinator spawns, down
	// to the bucketsync.Worker each shard's entry tasks construct
	// (spec.md §4.3.3/§4.2).
	BucketShardSpawnWindow  int
	BucketShardMarkerWindow int
}

// Coordinator drives one source zone's replication from cold start
// through steady-state incremental sync.
type Coordinator struct {
	cfg Config
	oid string

	mu       sync.RWMutex
	shardCRs map[uint32]*datalog.ShardWorker
}

// New builds a Coordinator for one source zone.
func New(cfg Config) *Coordinator {
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = 60 * time.Second
	}

	return &Coordinator{
		cfg:      cfg,
		oid:      logstore.SyncStatusKey(cfg.SourceZone),
		shardCRs: make(map[uint32]*datalog.ShardWorker),
	}
}

// Wakeup routes a set of locally-modified bucket shard keys to the
// data-log shard worker that owns each key's data-log partition, per
// spec.md §4.6's wake-up contract. It is a no-op for any shard whose
// worker has not been spawned yet (e.g. the coordinator is still
// bootstrapping) — the shard's own FullSync/IncrementalSync pass will
// observe the underlying change through the ordinary data-log path.
func (c *Coordinator) Wakeup(ctx context.Context, numDataShards uint32, bucketShardKeys []string) {
	byShard := make(map[uint32][]string)

	for _, key := range bucketShardKeys {
		shardID := hash.ShardFor(key, numDataShards)
		byShard[shardID] = append(byShard[shardID], key)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for shardID, keys := range byShard {
		if w, ok := c.shardCRs[shardID]; ok {
			w.Wakeup(keys)
		}
	}
}

// Run advances SyncInfo through Init and BuildingFullSyncMaps as
// needed, then spawns one ShardWorker per data-log shard and blocks
// until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	info, err := c.loadSyncInfo()

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "coordinator: load sync info", err)
	}

	if info.State == model.StateInit {
		info, err = c.runInit(ctx)

		if err != nil {
			return err
		}
	}

	if info.State == model.StateBuildingFullSyncMaps {
		if err := c.runIndexBuild(ctx, info.NumShards); err != nil {
			return err
		}

		info.State = model.StateSync

		if err := c.cfg.Store.Write(c.oid, info); err != nil {
			return zonesync.WrapError(zonesync.KindFatal, "coordinator: persist Sync transition", err)
		}

		zonesync.Log.Infof("coordinator[%s]: full-sync index built, entering Sync", c.cfg.SourceZone)
	}

	return c.runShards(ctx, info.NumShards)
}

func (c *Coordinator) loadSyncInfo() (model.SyncInfo, error) {
	var info model.SyncInfo

	err := c.cfg.Store.Read(c.oid, &info)

	if err == logstore.ErrNotFound {
		return info, nil
	}

	return info, err
}

// runInit performs the one-time bootstrap of spec.md §4.6 step 1:
// snapshot every remote shard's current marker as next_step_marker
// before any full-sync listing begins, exactly mirroring the per-bucket
// init pattern in bucketsync.Worker.runInit at the top level.
func (c *Coordinator) runInit(ctx context.Context) (model.SyncInfo, error) {
	cookie := uuid.New().String()

	if err := c.cfg.Store.Lock(c.oid, initLeaseName, cookie, c.cfg.LeaseTTL); err != nil {
		return model.SyncInfo{}, zonesync.WrapError(zonesync.KindTransient, "coordinator: acquire init lease", err)
	}

	defer c.cfg.Store.Unlock(c.oid, initLeaseName, cookie)

	numShards, err := c.cfg.Remote.DataLogNumShards(ctx)

	if err != nil {
		return model.SyncInfo{}, zonesync.WrapError(zonesync.KindTransient, "coordinator: fetch data log shard count", err)
	}

	info := model.SyncInfo{State: model.StateInit, NumShards: numShards}

	if err := c.cfg.Store.Write(c.oid, info); err != nil {
		return model.SyncInfo{}, zonesync.WrapError(zonesync.KindFatal, "coordinator: persist SyncInfo", err)
	}

	// The status object was just (re)created; reacquire the lease before
	// continuing, the same defensive re-lock bucketsync.Worker.runInit
	// performs at the bucket-shard level.
	if err := c.cfg.Store.Lock(c.oid, initLeaseName, cookie, c.cfg.LeaseTTL); err != nil {
		return model.SyncInfo{}, zonesync.WrapError(zonesync.KindTransient, "coordinator: reacquire init lease", err)
	}

	if err := c.seedShardMarkers(ctx, numShards); err != nil {
		return model.SyncInfo{}, err
	}

	info.State = model.StateBuildingFullSyncMaps

	if err := c.cfg.Store.Write(c.oid, info); err != nil {
		return model.SyncInfo{}, zonesync.WrapError(zonesync.KindFatal, "coordinator: persist BuildingFullSyncMaps transition", err)
	}

	zonesync.Log.Infof("coordinator[%s]: initialized, num_shards=%d", c.cfg.SourceZone, numShards)

	return info, nil
}

// seedShardMarkers concurrently fetches every remote shard's current
// info and writes an initial DataShardMarker per shard.
func (c *Coordinator) seedShardMarkers(ctx context.Context, numShards uint32) error {
	group := task.NewGroup()

	for shardID := uint32(0); shardID < numShards; shardID++ {
		shardID := shardID

		group.Spawn(ctx, func(ctx context.Context) error {
			shardInfo, err := c.cfg.Remote.DataLogShardInfo(ctx, shardID)

			if err != nil {
				return zonesync.WrapError(zonesync.KindTransient, "coordinator: fetch remote shard info", err)
			}

			marker := model.DataShardMarker{
				State:          model.DataLogFullSync,
				NextStepMarker: shardInfo.Marker,
				Timestamp:      time.Now(),
			}

			oid := logstore.DataShardMarkerKey(c.cfg.SourceZone, shardID)

			if err := c.cfg.Store.Write(oid, marker); err != nil {
				return zonesync.WrapError(zonesync.KindFatal, "coordinator: persist initial shard marker", err)
			}

			return nil
		}, false)
	}

	return group.DrainAll(ctx)
}

func (c *Coordinator) runIndexBuild(ctx context.Context, numShards uint32) error {
	b := &datalog.IndexBuilder{
		SourceZone:    c.cfg.SourceZone,
		Store:         c.cfg.Store,
		Remote:        c.cfg.Remote,
		NumDataShards: numShards,
	}

	return b.Build(ctx)
}

// runShards spawns one ShardWorker per data-log shard and waits for
// every one to exit, which happens only when ctx is cancelled (or a
// shard worker hits a Fatal error and terminates, per spec.md §7 — C5
// is expected to restart it on the next run cycle, left to the caller's
// process-level supervision).
func (c *Coordinator) runShards(ctx context.Context, numShards uint32) error {
	group := task.NewGroup()

	for shardID := uint32(0); shardID < numShards; shardID++ {
		w := datalog.NewShardWorker(datalog.Config{
			SourceZone:              c.cfg.SourceZone,
			ShardID:                 shardID,
			Store:                   c.cfg.Store,
			Remote:                  c.cfg.Remote,
			Transfer:                c.cfg.Transfer,
			BatchSize:               c.cfg.DataLogBatchSize,
			PollInterval:            c.cfg.DataLogPollInterval,
			MarkerWindow:            c.cfg.DataLogMarkerWindow,
			BucketShardSpawnWindow:  c.cfg.BucketShardSpawnWindow,
			BucketShardMarkerWindow: c.cfg.BucketShardMarkerWindow,
		})

		c.mu.Lock()
		c.shardCRs[shardID] = w
		c.mu.Unlock()

		group.Spawn(ctx, func(ctx context.Context) error {
			return w.Run(ctx)
		}, false)
	}

	return group.DrainAll(ctx)
}

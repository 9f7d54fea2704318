package datalog

import (
	"context"

	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/bucketsync"
	"github.com/objectzone/zonesync/model"
)

// runEntryTask is the per-entry task of spec.md §4.5: it parses rawKey
// as a bucket shard identity, drives that bucket shard's sync worker to
// completion (retrying while this tracker's dedup flagged a collision),
// then — unless this dispatch was a pure wake-up side-trigger, signaled
// by an empty entryMarker — reports completion so the data-log shard's
// own cursor can advance.
func (w *ShardWorker) runEntryTask(ctx context.Context, rawKey string, entryMarker string) error {
	key, err := model.ParseBucketShardKey(rawKey)

	if err != nil {
		return zonesync.WrapError(zonesync.KindParse, "datalog: parse bucket shard key", err)
	}

	for {
		bw := bucketsync.NewWorker(bucketsync.Config{
			SourceZone:   w.cfg.SourceZone,
			ShardKey:     key,
			Store:        w.cfg.Store,
			Remote:       w.cfg.Remote,
			Transfer:     w.cfg.Transfer,
			SpawnWindow:  w.cfg.BucketShardSpawnWindow,
			MarkerWindow: w.cfg.BucketShardMarkerWindow,
		})

		if err := bw.Run(ctx); err != nil {
			w.tracker.ReleaseKey(rawKey)

			return err
		}

		if !w.tracker.NeedRetry(rawKey) {
			break
		}

		w.tracker.ResetNeedRetry(rawKey)
	}

	w.tracker.ReleaseKey(rawKey)

	if entryMarker == "" {
		return nil
	}

	if op, ok := w.tracker.Finish(entryMarker); ok {
		if err := w.advanceMarker(op.Marker); err != nil {
			return err
		}
	}

	return nil
}

// advanceMarker persists the data-log shard's marker after the tracker
// reports a new contiguous completion.
func (w *ShardWorker) advanceMarker(marker string) error {
	m, err := w.loadMarker()

	if err != nil {
		return zonesync.WrapError(zonesync.KindTransient, "datalog: reload shard marker before advance", err)
	}

	m.Marker = marker

	if err := w.writeMarker(m); err != nil {
		return zonesync.WrapError(zonesync.KindFatal, "datalog: persist advanced marker", err)
	}

	return nil
}

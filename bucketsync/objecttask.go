package bucketsync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/model"
	"github.com/objectzone/zonesync/remoteapi"
)

// perObjectTask is the unit of work fanned out per listing/bilog entry
// (spec.md §4.3.2).
type perObjectTask struct {
	key            model.ObjectKey
	op             model.BilogOp
	versionedEpoch uint64
	timestamp      time.Time
}

// runFullSyncObjectTask applies one full-sync listing entry, bumps the
// shared completed-entry counter, and — if this entry completed the
// tracker's oldest contiguous prefix — persists both the advanced
// position and the up-to-date count.
func (w *Worker) runFullSyncObjectTask(ctx context.Context, t perObjectTask, counter *atomic.Uint64) error {
	err := w.applyObjectTask(ctx, t)

	if err != nil {
		return err
	}

	count := counter.Add(1)

	if op, ok := w.fullTracker.Finish(t.key); ok {
		if err := writeFullMarker(w.cfg.Store, w.oid, model.FullMarker{
			Position:  op.Marker,
			Count:     count,
			Timestamp: time.Now(),
		}); err != nil {
			return zonesync.WrapError(zonesync.KindFatal, "bucketsync: persist full marker", err)
		}
	}

	return nil
}

// runIncrementalObjectTask applies one bilog entry and reports
// completion to the incremental tracker.
func (w *Worker) runIncrementalObjectTask(ctx context.Context, wireEntry remoteapi.BilogEntryWire) error {
	t := perObjectTask{
		key:            model.ObjectKey{Name: wireEntry.Object, Instance: wireEntry.Instance},
		op:             parseBilogOp(wireEntry.Op),
		versionedEpoch: wireEntry.Ver.Epoch,
		timestamp:      wireEntry.Timestamp,
	}

	err := w.applyObjectTask(ctx, t)

	if err != nil {
		return err
	}

	if op, ok := w.incTracker.Finish(wireEntry.ID); ok {
		if err := writeIncMarker(w.cfg.Store, w.oid, model.IncMarker{Position: op.Marker}); err != nil {
			return zonesync.WrapError(zonesync.KindFatal, "bucketsync: persist inc marker", err)
		}
	}

	return nil
}

// applyObjectTask runs the transfer policy of spec.md §4.3.2: skip
// unversioned Add entries for versioned keys (the matching LinkOLH
// entry mirrors them), retry transient transfer failures with
// exponential backoff, and treat NotFound/PermanentRemote outcomes as
// applied so one bad object never blocks the shard.
func (w *Worker) applyObjectTask(ctx context.Context, t perObjectTask) error {
	if t.op == model.OpAdd && t.key.IsVersioned() {
		return nil
	}

	backoff := time.Duration(0)

	for {
		var err error

		switch t.op {
		case model.OpAdd, model.OpLinkOLH:
			err = w.cfg.Transfer.Fetch(ctx, w.cfg.SourceZone, w.cfg.ShardKey.Bucket, t.key, t.versionedEpoch)
		case model.OpDel:
			err = w.cfg.Transfer.Remove(ctx, w.cfg.SourceZone, w.cfg.ShardKey.Bucket, t.key, t.versionedEpoch, t.timestamp)
		}

		if err == nil {
			zonesync.ObjectsTransferred.WithLabelValues(t.op.String()).Inc()

			return nil
		}

		if zonesync.AdvancesMarker(err) {
			zonesync.Log.Warningf("bucketsync[%s]: object %q applied with error, counted: %v", w.cfg.ShardKey, t.key.Name, err)
			zonesync.ObjectErrors.WithLabelValues(zonesync.KindOf(err).String()).Inc()

			return nil
		}

		if !zonesync.IsTransient(err) {
			// Parse/Fatal: escalate to the caller rather than retry.
			zonesync.ObjectErrors.WithLabelValues(zonesync.KindOf(err).String()).Inc()

			return err
		}

		if backoff == 0 {
			backoff = time.Second
		} else if backoff < w.cfg.MaxBackoff {
			backoff *= 2
		}

		zonesync.Log.Debugf("bucketsync[%s]: transient error on %q, retrying in %s: %v", w.cfg.ShardKey, t.key.Name, backoff, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseBilogOp(raw string) model.BilogOp {
	switch raw {
	case "Del":
		return model.OpDel
	case "LinkOLH":
		return model.OpLinkOLH
	default:
		return model.OpAdd
	}
}

package main

import (
	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
)

// storeStatusProvider implements zonesync.StatusProvider by reading
// shard markers directly out of the shared log store, rather than
// asking the running coordinator/shard workers for a snapshot. This
// keeps AdminEndpoint decoupled from the coordinator/datalog packages
// (per this daemon's import direction) without adding accessor methods
// to either just to serve the status page.
type storeStatusProvider struct {
	sourceZone string
	store      logstore.LogStore
}

func (p *storeStatusProvider) ShardIDs() []uint32 {
	var info model.SyncInfo

	if err := p.store.Read(logstore.SyncStatusKey(p.sourceZone), &info); err != nil {
		return nil
	}

	ids := make([]uint32, info.NumShards)

	for i := range ids {
		ids[i] = uint32(i)
	}

	return ids
}

func (p *storeStatusProvider) ShardStatus(shardID uint32) (zonesync.ShardStatus, bool) {
	var m model.DataShardMarker

	if err := p.store.Read(logstore.DataShardMarkerKey(p.sourceZone, shardID), &m); err != nil {
		return zonesync.ShardStatus{}, false
	}

	return zonesync.ShardStatus{
		ShardID:      shardID,
		State:        m.State.String(),
		Marker:       m.Marker,
		TotalEntries: m.TotalEntries,
	}, true
}

package bucketsync

import (
	"encoding/json"

	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/model"
)

const (
	attrState      = "state"
	attrFullMarker = "full_marker"
	attrIncMarker  = "inc_marker"
)

// loadStatus reads the BucketShardSyncInfo attribute bundle at oid,
// decoding whichever of state/full_marker/inc_marker are present.
// A bucket shard with no attributes at all is still a valid Init
// worker that has never run.
func loadStatus(store logstore.LogStore, oid string) (model.BucketShardSyncInfo, error) {
	var info model.BucketShardSyncInfo

	attrs, err := store.ReadAttrs(oid)

	if err == logstore.ErrNotFound {
		return info, nil
	}

	if err != nil {
		return info, err
	}

	if raw, ok := attrs[attrState]; ok {
		if err := json.Unmarshal(raw, &info.State); err != nil {
			return info, err
		}
	}

	if raw, ok := attrs[attrFullMarker]; ok {
		if err := json.Unmarshal(raw, &info.FullMark); err != nil {
			return info, err
		}
	}

	if raw, ok := attrs[attrIncMarker]; ok {
		if err := json.Unmarshal(raw, &info.IncMark); err != nil {
			return info, err
		}
	}

	return info, nil
}

func writeState(store logstore.LogStore, oid string, state model.BucketShardState) error {
	raw, err := json.Marshal(state)

	if err != nil {
		return err
	}

	return store.WriteAttrs(oid, map[string][]byte{attrState: raw})
}

func writeFullMarker(store logstore.LogStore, oid string, fm model.FullMarker) error {
	raw, err := json.Marshal(fm)

	if err != nil {
		return err
	}

	return store.WriteAttrs(oid, map[string][]byte{attrFullMarker: raw})
}

func writeIncMarker(store logstore.LogStore, oid string, im model.IncMarker) error {
	raw, err := json.Marshal(im)

	if err != nil {
		return err
	}

	return store.WriteAttrs(oid, map[string][]byte{attrIncMarker: raw})
}

func writeInitStatus(store logstore.LogStore, oid string) error {
	return store.WriteAttrs(oid, map[string][]byte{
		attrState:      mustJSON(model.BucketShardInit),
		attrFullMarker: mustJSON(model.FullMarker{}),
		attrIncMarker:  mustJSON(model.IncMarker{}),
	})
}

func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)

	if err != nil {
		panic(err)
	}

	return raw
}

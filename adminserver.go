package zonesync

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShardStatus is the admin-surfaced snapshot of one data-log shard's
// progress, the supplemented operator-facing status endpoint this
// daemon carries alongside the replication engine itself.
type ShardStatus struct {
	ShardID      uint32 `json:"shardId"`
	State        string `json:"state"`
	Marker       string `json:"marker"`
	TotalEntries uint64 `json:"totalEntries"`
}

// StatusProvider is implemented by whatever owns the running
// coordinator (wired in cmd/zonesyncd). AdminEndpoint depends on this
// interface rather than the coordinator/datalog packages directly, so
// this package never imports back down into the subpackages it serves —
// the same import direction the teacher's cloud/raft keeps toward its
// root devicedb package, just inverted.
type StatusProvider interface {
	ShardStatus(shardID uint32) (ShardStatus, bool)
	ShardIDs() []uint32
}

// AdminEndpoint exposes spec.md's supplemented admin surface: a
// liveness probe, per-shard status, and a Prometheus scrape target.
// Grounded on the teacher's routes package idiom (e.g.
// routes/sites.go's Endpoint-with-a-Facade-field, Attach(*mux.Router)).
type AdminEndpoint struct {
	Status StatusProvider
}

// Attach registers this endpoint's routes on router.
func (e *AdminEndpoint) Attach(router *mux.Router) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		statuses := make([]ShardStatus, 0, len(e.Status.ShardIDs()))

		for _, id := range e.Status.ShardIDs() {
			if s, ok := e.Status.ShardStatus(id); ok {
				statuses = append(statuses, s)
			}
		}

		writeJSON(w, statuses)
	}).Methods("GET")

	router.HandleFunc("/status/{shardID}", func(w http.ResponseWriter, r *http.Request) {
		shardID, err := strconv.ParseUint(mux.Vars(r)["shardID"], 10, 32)

		if err != nil {
			http.Error(w, "invalid shard id", http.StatusBadRequest)

			return
		}

		status, ok := e.Status.ShardStatus(uint32(shardID))

		if !ok {
			http.Error(w, "no such shard", http.StatusNotFound)

			return
		}

		writeJSON(w, status)
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log.Errorf("adminserver: encode response: %v", err)
	}
}

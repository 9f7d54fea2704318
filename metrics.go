package zonesync

import "github.com/prometheus/client_golang/prometheus"

// Metrics are registered here, in the root package, rather than in the
// subpackages that increment them: the subpackages (bucketsync, datalog,
// remoteapi, transfer) already import zonesync for Log and the error
// helpers, and the admin HTTP surface in cmd/zonesyncd exposes
// promhttp.Handler() against the default registry these collectors
// register into.
var (
	// ObjectsTransferred counts successfully applied per-object tasks,
	// labeled by bilog operation (Add, Del, LinkOLH).
	ObjectsTransferred = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonesync_objects_transferred_total",
		Help: "Per-object replication tasks applied, by operation.",
	}, []string{"op"})

	// ObjectErrors counts per-object tasks that finished via an error
	// path (NotFound/PermanentRemote counted-as-applied, or escalated
	// Parse/Fatal), labeled by error kind.
	ObjectErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zonesync_object_errors_total",
		Help: "Per-object replication task outcomes classified as errors, by kind.",
	}, []string{"kind"})

	// DataLogShardLag is a per-shard caught-up flag set by each
	// IncrementalSync poll: 0 when the shard's local marker equals the
	// remote's reported marker, 1 otherwise. It is not an entry count.
	DataLogShardLag = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zonesync_datalog_shard_lag",
		Help: "1 if the shard's local marker differs from the remote marker at the last poll, 0 if caught up, by shard.",
	}, []string{"shard"})

	// BucketShardsInFlight is the number of bucket-shard sync workers
	// currently running their full-sync per-object task fan-out.
	// Incremental passes are not counted.
	BucketShardsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zonesync_bucket_shards_in_flight",
		Help: "Bucket-shard sync workers currently in their full-sync fan-out.",
	})
)

func init() {
	prometheus.MustRegister(ObjectsTransferred, ObjectErrors, DataLogShardLag, BucketShardsInFlight)
}

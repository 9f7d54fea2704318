package main

import "fmt"

func init() {
	registerCommand("conf", generateConfig, confUsage)
}

var confUsage string = `Usage: zonesyncd conf > path/to/output.yaml
`

var templateConfig string = `# localZone is the id of the zone this daemon replicates into.
# **REQUIRED**
localZone: us-west

# sourceZone is the id of the zone this daemon pulls changes from.
# **REQUIRED**
sourceZone: us-east

# remoteEndpoint is the base URL of the source zone's admin REST API.
# **REQUIRED**
remoteEndpoint: http://rgw.us-east.example.com:8080

# logStoreDir is the directory backing the embedded log store. Created
# if it doesn't already exist.
# **REQUIRED**
logStoreDir: /var/lib/zonesyncd

# adminPort serves /healthz, /status, /status/<shard>, and /metrics.
adminPort: 9480

# pollIntervalSeconds is the idle poll cadence once a data-log shard has
# caught up to the source zone's current marker.
pollIntervalSeconds: 20

# bucketShardSpawnWindow bounds the number of concurrent per-object
# fetch/remove tasks one bucket-shard worker will run at once.
bucketShardSpawnWindow: 20

# dataLogBatchSize bounds entries fetched per data-log poll and per
# full-sync-index page.
dataLogBatchSize: 100

# dataLogMarkerWindow is the window size given to each data-log shard's
# marker tracker. It is recorded, not enforced as a limit.
dataLogMarkerWindow: 1

# bucketShardMarkerWindow is the window size given to each bucket
# shard's marker trackers. It is recorded, not enforced as a limit.
bucketShardMarkerWindow: 10

# leaseTTLSeconds is the advisory lock lease duration used while
# bootstrapping the sync status object. Bucket-shard status objects use
# a fixed 30-second lease.
leaseTTLSeconds: 60

# logLevel names the op/go-logging level to run at: debug, info,
# warning, error, or critical.
logLevel: info
`

func generateConfig() {
	fmt.Print(templateConfig)
}

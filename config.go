package zonesync

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// ServerConfig is the YAML configuration for one zonesync daemon instance.
// A daemon mirrors exactly one (local zone, source zone) pair, per spec §1.
type ServerConfig struct {
	// LocalZone is the id of the zone this daemon replicates into.
	LocalZone string `yaml:"localZone"`
	// SourceZone is the id of the zone this daemon replicates from.
	SourceZone string `yaml:"sourceZone"`
	// RemoteEndpoint is the base URL of the source zone's admin REST API.
	RemoteEndpoint string `yaml:"remoteEndpoint"`
	// LogStoreDir is the directory backing the embedded log-store.
	LogStoreDir string `yaml:"logStoreDir"`
	// AdminPort serves /healthz and /status/<shard>.
	AdminPort int `yaml:"adminPort"`
	// PollIntervalSeconds is the incremental-sync idle poll cadence
	// (design target 20s, spec §4.4).
	PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	// BucketShardSpawnWindow bounds concurrent per-object tasks inside
	// one bucket-shard worker (design target 20, spec §4.3.3).
	BucketShardSpawnWindow int `yaml:"bucketShardSpawnWindow"`
	// DataLogBatchSize bounds entries fetched per data-log poll and
	// full-sync-index page (design target 100, spec §4.4).
	DataLogBatchSize int `yaml:"dataLogBatchSize"`
	// DataLogMarkerWindow is the window size given to each data-log
	// shard's marker tracker (design target 1, spec §4.2). The tracker
	// records it but does not limit in-flight markers.
	DataLogMarkerWindow int `yaml:"dataLogMarkerWindow"`
	// BucketShardMarkerWindow is the window size given to each
	// bucket-shard marker tracker (design target 10, spec §4.2). The
	// tracker records it but does not limit in-flight markers.
	BucketShardMarkerWindow int `yaml:"bucketShardMarkerWindow"`
	// LeaseTTLSeconds is the advisory lock lease duration used during
	// init of the sync status object (spec §4.1). Bucket-shard status
	// init uses bucketsync's own 30-second default instead.
	LeaseTTLSeconds int `yaml:"leaseTTLSeconds"`
	// LogLevel names the op/go-logging level to run at.
	LogLevel string `yaml:"logLevel"`
}

// DefaultServerConfig returns the design-target constants from the spec
// wherever a field is left at its zero value by LoadFromFile.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		AdminPort:               9480,
		PollIntervalSeconds:     20,
		BucketShardSpawnWindow:  20,
		DataLogBatchSize:        100,
		DataLogMarkerWindow:     1,
		BucketShardMarkerWindow: 10,
		LeaseTTLSeconds:         60,
		LogLevel:                "info",
	}
}

// LoadFromFile reads and validates a YAML config file, filling in design
// target defaults for any field the file leaves unset.
func (sc *ServerConfig) LoadFromFile(file string) error {
	*sc = DefaultServerConfig()

	rawConfig, err := ioutil.ReadFile(file)

	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(rawConfig, sc); err != nil {
		return err
	}

	return sc.validate()
}

func (sc *ServerConfig) validate() error {
	if len(sc.LocalZone) == 0 {
		return fmt.Errorf("localZone is required")
	}

	if len(sc.SourceZone) == 0 {
		return fmt.Errorf("sourceZone is required")
	}

	if sc.LocalZone == sc.SourceZone {
		return fmt.Errorf("localZone and sourceZone must differ")
	}

	if len(sc.RemoteEndpoint) == 0 {
		return fmt.Errorf("remoteEndpoint is required")
	}

	if len(sc.LogStoreDir) == 0 {
		return fmt.Errorf("logStoreDir is required")
	}

	if !isValidPort(sc.AdminPort) {
		return fmt.Errorf("%d is an invalid admin port", sc.AdminPort)
	}

	if sc.PollIntervalSeconds <= 0 {
		return fmt.Errorf("pollIntervalSeconds must be positive")
	}

	if sc.BucketShardSpawnWindow <= 0 {
		return fmt.Errorf("bucketShardSpawnWindow must be at least 1")
	}

	if sc.DataLogBatchSize <= 0 {
		return fmt.Errorf("dataLogBatchSize must be at least 1")
	}

	if sc.DataLogMarkerWindow <= 0 {
		return fmt.Errorf("dataLogMarkerWindow must be at least 1")
	}

	if sc.BucketShardMarkerWindow <= 0 {
		return fmt.Errorf("bucketShardMarkerWindow must be at least 1")
	}

	if sc.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("leaseTTLSeconds must be positive")
	}

	SetLoggingLevel(sc.LogLevel)

	return nil
}

func isValidPort(p int) bool {
	return p >= 0 && p < (1 << 16)
}

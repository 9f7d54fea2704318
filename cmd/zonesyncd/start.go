package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/objectzone/zonesync"
	"github.com/objectzone/zonesync/coordinator"
	"github.com/objectzone/zonesync/logstore"
	"github.com/objectzone/zonesync/remoteapi"
	"github.com/objectzone/zonesync/transfer"
)

func init() {
	registerCommand("start", startServer, startUsage)
}

var startUsage string = `Usage: zonesyncd start -conf path/to/config.yaml
`

func startServer() {
	var sc zonesync.ServerConfig

	if err := sc.LoadFromFile(*optConfigFile); err != nil {
		fmt.Printf("Unable to load config file: %s\n", err.Error())

		return
	}

	store, err := logstore.OpenLevelDBStore(sc.LogStoreDir)

	if err != nil {
		fmt.Printf("Unable to open log store at %s: %s\n", sc.LogStoreDir, err.Error())

		return
	}

	defer store.Close()

	remote := remoteapi.NewHTTPClient(sc.RemoteEndpoint)
	sink := transfer.NewMemSink()
	primitive := transfer.NewHTTPPrimitive(sc.RemoteEndpoint, sink)

	c := coordinator.New(coordinator.Config{
		SourceZone:              sc.SourceZone,
		Store:                   store,
		Remote:                  remote,
		Transfer:                primitive,
		LeaseTTL:                time.Duration(sc.LeaseTTLSeconds) * time.Second,
		DataLogBatchSize:        sc.DataLogBatchSize,
		DataLogPollInterval:     time.Duration(sc.PollIntervalSeconds) * time.Second,
		DataLogMarkerWindow:     sc.DataLogMarkerWindow,
		BucketShardSpawnWindow:  sc.BucketShardSpawnWindow,
		BucketShardMarkerWindow: sc.BucketShardMarkerWindow,
	})

	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		zonesync.Log.Infof("zonesyncd: received shutdown signal")
		cancel()
	}()

	router := mux.NewRouter()
	admin := &zonesync.AdminEndpoint{Status: &storeStatusProvider{sourceZone: sc.SourceZone, store: store}}
	admin.Attach(router)

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(sc.AdminPort),
		Handler: router,
	}

	go func() {
		zonesync.Log.Infof("zonesyncd: admin server listening on %s", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zonesync.Log.Errorf("zonesyncd: admin server: %v", err)
		}
	}()

	err = c.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	if err != nil && err != context.Canceled {
		zonesync.Log.Errorf("zonesyncd: coordinator exited: %v", err)
		os.Exit(1)
	}
}

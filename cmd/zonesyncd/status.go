package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/objectzone/zonesync"
)

var optStatusEndpoint *string

func init() {
	optStatusEndpoint = flag.String("endpoint", "http://localhost:9480", "Admin endpoint of the running zonesyncd instance")

	registerCommand("status", showStatus, statusUsage)
}

var statusUsage string = `Usage: zonesyncd status -endpoint http://localhost:9480
`

func showStatus() {
	resp, err := http.Get(*optStatusEndpoint + "/status")

	if err != nil {
		fmt.Printf("Unable to reach %s: %s\n", *optStatusEndpoint, err.Error())
		os.Exit(1)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("%s/status returned status %d\n", *optStatusEndpoint, resp.StatusCode)
		os.Exit(1)
	}

	var statuses []zonesync.ShardStatus

	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		fmt.Printf("Unable to decode status response: %s\n", err.Error())
		os.Exit(1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Shard", "State", "Marker", "Total Entries"})

	for _, s := range statuses {
		table.Append([]string{
			strconv.FormatUint(uint64(s.ShardID), 10),
			s.State,
			s.Marker,
			strconv.FormatUint(s.TotalEntries, 10),
		})
	}

	table.Render()
}

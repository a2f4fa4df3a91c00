// Package sensor turns OMV status snapshots into named sensor entities and
// exposes them over MCP tool calls.
package sensor

import (
	"fmt"
	"sort"
)

// Definition describes one monitored OMV condition: the friendly name shown
// to consumers and the icon/unit hints a dashboard may use.
type Definition struct {
	FriendlyName string
	Icon         string
	Unit         string
}

// definitions maps condition keys (normalized OMV field names) to their
// display metadata. The keys match what System.getInformation reports.
var definitions = map[string]Definition{
	"hostname":     {FriendlyName: "Hostname", Icon: "mdi:web"},
	"version":      {FriendlyName: "Version", Icon: "mdi:web"},
	"cpumodelname": {FriendlyName: "Processor", Icon: "mdi:chip"},
	"kernel":       {FriendlyName: "Kernel", Icon: "mdi:linux"},
	"time":         {FriendlyName: "System time", Icon: "mdi:clock-outline"},
	"uptime":       {FriendlyName: "Uptime", Icon: "mdi:sort-clock-descending"},
	"loadaverage":  {FriendlyName: "Load average", Icon: "mdi:gauge"},
	"cpuusage":     {FriendlyName: "CPU usage", Icon: "mdi:gauge", Unit: "%"},
	"memused":      {FriendlyName: "Memory usage", Icon: "mdi:memory", Unit: "%"},
}

// Lookup returns the Definition for a condition key and whether it exists.
func Lookup(condition string) (Definition, bool) {
	d, ok := definitions[condition]
	return d, ok
}

// AllConditions returns every known condition key in sorted order.
func AllConditions() []string {
	keys := make([]string, 0, len(definitions))
	for k := range definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateConditions returns an error naming the first condition in the
// list that is not in the registry. An empty list is valid and means "all".
func ValidateConditions(conditions []string) error {
	for _, c := range conditions {
		if _, ok := definitions[c]; !ok {
			return fmt.Errorf("sensor: unknown monitored condition %q (known: %v)", c, AllConditions())
		}
	}
	return nil
}

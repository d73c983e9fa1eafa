// Package metrics publishes the decision engine's counters and running
// averages, the way the teacher's perf package wires up
// github.com/encodeous/metric counters/histograms via expvar.Publish.
package metrics

import (
	"expvar"

	"github.com/encodeous/metric"
)

// Counters are running, monotonically-incrementing decision-engine
// counters (spec.md §6). Histograms double as "average over time"
// gauges for the few fields (num_nodes, num_prefixes, ...) that are
// snapshots rather than increments; pushing a single sample per update
// keeps their windowed average meaningful without a separate gauge
// type, matching how the teacher treats SendBatchSize/RecvBatchSize.
var (
	AdjDbUpdate    = metric.NewCounter("10s1s")
	PrefixDbUpdate = metric.NewCounter("10s1s")

	RouteBuildRuns = metric.NewCounter("1m1s")
	RouteBuildMs   = metric.NewHistogram("1m1s")
	SpfRuns        = metric.NewCounter("1m1s")
	SpfMs          = metric.NewHistogram("1m1s")
	PathBuildMs    = metric.NewHistogram("1m1s")

	SkippedUnicastRoute      = metric.NewCounter("1m1s")
	SkippedMplsRoute         = metric.NewCounter("1m1s")
	DuplicateNodeLabel       = metric.NewCounter("1m1s")
	NoRouteToPrefix          = metric.NewCounter("1m1s")
	NoRouteToLabel           = metric.NewCounter("1m1s")
	MissingLoopbackAddr      = metric.NewCounter("1m1s")
	IncompatibleForwardingType = metric.NewCounter("1m1s")
	Errors                   = metric.NewCounter("1m1s")

	NumPartialAdjacencies  = metric.NewHistogram("10s1s")
	NumCompleteAdjacencies = metric.NewHistogram("10s1s")
	NumNodes               = metric.NewHistogram("10s1s")
	NumPrefixes            = metric.NewHistogram("10s1s")
	NumNodesV4Loopbacks    = metric.NewHistogram("10s1s")
	NumNodesV6Loopbacks    = metric.NewHistogram("10s1s")
)

func init() {
	expvar.Publish("decision:adj_db_update", AdjDbUpdate)
	expvar.Publish("decision:prefix_db_update", PrefixDbUpdate)
	expvar.Publish("decision:route_build_runs", RouteBuildRuns)
	expvar.Publish("decision:route_build_ms", RouteBuildMs)
	expvar.Publish("decision:spf_runs", SpfRuns)
	expvar.Publish("decision:spf_ms", SpfMs)
	expvar.Publish("decision:path_build_ms", PathBuildMs)
	expvar.Publish("decision:skipped_unicast_route", SkippedUnicastRoute)
	expvar.Publish("decision:skipped_mpls_route", SkippedMplsRoute)
	expvar.Publish("decision:duplicate_node_label", DuplicateNodeLabel)
	expvar.Publish("decision:no_route_to_prefix", NoRouteToPrefix)
	expvar.Publish("decision:no_route_to_label", NoRouteToLabel)
	expvar.Publish("decision:missing_loopback_addr", MissingLoopbackAddr)
	expvar.Publish("decision:incompatible_forwarding_type", IncompatibleForwardingType)
	expvar.Publish("decision:errors", Errors)
	expvar.Publish("decision:num_partial_adjacencies", NumPartialAdjacencies)
	expvar.Publish("decision:num_complete_adjacencies", NumCompleteAdjacencies)
	expvar.Publish("decision:num_nodes", NumNodes)
	expvar.Publish("decision:num_prefixes", NumPrefixes)
	expvar.Publish("decision:num_nodes_v4_loopbacks", NumNodesV4Loopbacks)
	expvar.Publish("decision:num_nodes_v6_loopbacks", NumNodesV6Loopbacks)
}

// RecordRouteBuild records one completed buildRouteDb run's wall time.
func RecordRouteBuild(ms float64) {
	RouteBuildRuns.Add(1)
	RouteBuildMs.Add(ms)
}

// RecordSpf records one completed per-source SPF run's wall time.
func RecordSpf(ms float64) {
	SpfRuns.Add(1)
	SpfMs.Add(ms)
}

// RecordGlobalCounters snapshots the topology-wide gauges, mirroring
// Decision::updateGlobalCounters.
func RecordGlobalCounters(numNodes, numPrefixes, partialAdj, completeAdj, v4Loopbacks, v6Loopbacks int) {
	NumNodes.Add(float64(numNodes))
	NumPrefixes.Add(float64(numPrefixes))
	NumPartialAdjacencies.Add(float64(partialAdj))
	NumCompleteAdjacencies.Add(float64(completeAdj))
	NumNodesV4Loopbacks.Add(float64(v4Loopbacks))
	NumNodesV6Loopbacks.Add(float64(v6Loopbacks))
}

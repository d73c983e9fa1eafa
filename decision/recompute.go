package decision

import (
	"time"

	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/routetypes"
)

// scheduleDebounce arms the debounce timer if one isn't already
// pending, using the next exponential-backoff interval. A change that
// arrives while the timer is armed does not move its fire time.
// recompute resets the backoff after each publish, so the interval only
// grows past debounce_min_ms (up to debounce_max_ms) while recomputes
// are held back by the cold-start grace period.
func (d *Decision) scheduleDebounce() {
	if d.debounceSet {
		return
	}
	d.debounceSet = true
	d.Env.ScheduleTask((*Decision).fireDebounce, d.backoff.NextBackOff())
}

func (d *Decision) fireDebounce() error {
	d.debounceSet = false
	return d.recompute()
}

// onColdStartExpiry is the cold-start grace timer callback: it forces a
// first recompute/publish even if nothing has changed, so a
// never-updated node still advertises an empty RouteDb rather than
// withholding one forever (spec.md §9 Open Question #2).
func (d *Decision) onColdStartExpiry() error {
	if d.coldStarted {
		return nil
	}
	d.coldStarted = true
	return d.recompute()
}

// recompute rebuilds the RouteDb from current state, applies static
// MPLS overrides and the active RibPolicy, diffs against the last
// published RouteDb, and pushes the result (spec.md §4.5/§4.6).
// Nothing is published until the cold-start grace period has elapsed.
func (d *Decision) recompute() error {
	if !d.coldStarted {
		return nil
	}

	start := time.Now()
	rdb := routetypes.NewRouteDb()

	// Union per-area results (spec.md §9 Open Question #1: later area,
	// in map-iteration order, wins a same-key collision; no further
	// tiebreak is defined).
	for _, ls := range d.areaLinkStates {
		areaRdb, err := d.solver.BuildRouteDb(d.myNode, ls, d.prefixState)
		if err != nil {
			return err
		}
		if areaRdb == nil {
			continue
		}
		for p, e := range areaRdb.Unicast {
			rdb.Unicast[p] = e
		}
		for l, e := range areaRdb.Mpls {
			rdb.Mpls[l] = e
		}
	}

	d.solver.ProcessStaticRouteUpdates()
	for label, entry := range d.solver.GetStaticRoutes() {
		rdb.Mpls[label] = entry
	}

	if d.cfg.EnableRibPolicy && d.ribPolicy.IsActive() {
		for prefix, entry := range rdb.Unicast {
			e := entry
			d.ribPolicy.Apply(&e)
			if len(e.NextHops) == 0 {
				delete(rdb.Unicast, prefix)
				continue
			}
			rdb.Unicast[prefix] = e
		}
	}

	metrics.RecordRouteBuild(float64(time.Since(start).Milliseconds()))

	delta := diffRouteDb(d.myNode, d.lastRouteDb, rdb)
	d.lastRouteDb = rdb
	d.pendingLinkState = false
	d.pendingPrefix = false
	d.pendingStatic = false
	d.backoff.Reset()

	d.outbound <- delta
	return nil
}

// diffRouteDb produces the minimal RouteDelta turning old into next,
// matching spec.md §4.6's update/delete-by-key diff.
func diffRouteDb(node NodeName, old, next *routetypes.RouteDb) routetypes.RouteDelta {
	delta := routetypes.RouteDelta{ThisNode: node}
	if old == nil {
		old = routetypes.NewRouteDb()
	}

	for prefix, entry := range next.Unicast {
		if prior, ok := old.Unicast[prefix]; !ok || !unicastEqual(prior, entry) {
			delta.UnicastRoutesUpdate = append(delta.UnicastRoutesUpdate, entry)
		}
	}
	for prefix := range old.Unicast {
		if _, ok := next.Unicast[prefix]; !ok {
			delta.UnicastRoutesDelete = append(delta.UnicastRoutesDelete, prefix)
		}
	}

	for label, entry := range next.Mpls {
		if prior, ok := old.Mpls[label]; !ok || !mplsEqual(prior, entry) {
			delta.MplsRoutesUpdate = append(delta.MplsRoutesUpdate, entry)
		}
	}
	for label := range old.Mpls {
		if _, ok := next.Mpls[label]; !ok {
			delta.MplsRoutesDelete = append(delta.MplsRoutesDelete, label)
		}
	}

	return delta
}

func unicastEqual(a, b routetypes.RibUnicastEntry) bool {
	if a.Prefix != b.Prefix || a.DoNotInstall != b.DoNotInstall || len(a.NextHops) != len(b.NextHops) {
		return false
	}
	return nextHopSetEqual(a.NextHops, b.NextHops)
}

func mplsEqual(a, b routetypes.RibMplsEntry) bool {
	if a.Label != b.Label || len(a.NextHops) != len(b.NextHops) {
		return false
	}
	return nextHopSetEqual(a.NextHops, b.NextHops)
}

func nextHopSetEqual(a, b []routetypes.NextHop) bool {
	seen := make(map[string]routetypes.NextHop, len(a))
	for _, nh := range a {
		seen[nh.Key()] = nh
	}
	for _, nh := range b {
		prior, ok := seen[nh.Key()]
		if !ok || prior.Metric != nh.Metric || prior.NonShortest != nh.NonShortest {
			return false
		}
	}
	return true
}

// startHoldTimer arms the periodic ordered-fib hold-decrement ticker.
// Its period is maxFibTime() as of the call (one second when no
// fib-time is known yet); fib-times received later do not change it.
func (d *Decision) startHoldTimer() {
	d.Env.RepeatTask((*Decision).decrementHolds, d.maxFibTime())
}

func (d *Decision) decrementHolds() error {
	changed := false
	for _, ls := range d.areaLinkStates {
		if !ls.HasHolds() {
			continue
		}
		if ls.DecrementHolds().TopologyChanged {
			changed = true
		}
	}
	if changed {
		d.pendingLinkState = true
		d.scheduleDebounce()
	}
	return nil
}

func (d *Decision) maxFibTime() time.Duration {
	max := 1 * time.Second
	for _, t := range d.fibTimes {
		if t > max {
			max = t
		}
	}
	return max
}

// startCounterTimer arms the periodic global-counter submission used by
// spec.md §6's num_nodes/num_prefixes/... gauges.
func (d *Decision) startCounterTimer() {
	d.Env.RepeatTask((*Decision).updateGlobalCounters, 10*time.Second)
}

func (d *Decision) updateGlobalCounters() error {
	partial, complete := d.countAdjacencies()
	metrics.RecordGlobalCounters(
		d.numNodes(),
		len(d.prefixState.Prefixes()),
		partial,
		complete,
		d.prefixState.NumNodesWithLoopback(true),
		d.prefixState.NumNodesWithLoopback(false),
	)
	return nil
}

func (d *Decision) numNodes() int {
	seen := make(map[NodeName]struct{})
	for _, ls := range d.areaLinkStates {
		for node := range ls.GetAdjacencyDatabases() {
			seen[node] = struct{}{}
		}
	}
	return len(seen)
}

// countAdjacencies reports how many nodes have a fully-symmetric
// adjacency to every neighbor they advertise ("complete") versus at
// least one asymmetric/unreciprocated adjacency ("partial").
func (d *Decision) countAdjacencies() (partial, complete int) {
	for _, ls := range d.areaLinkStates {
		dbs := ls.GetAdjacencyDatabases()
		for node, db := range dbs {
			isComplete := true
			for _, adj := range db.Adjacencies {
				if _, ok := ls.GetMetricFromAToB(node, adj.NeighborNode); !ok {
					isComplete = false
					break
				}
			}
			if isComplete {
				complete++
			} else {
				partial++
			}
		}
	}
	return
}

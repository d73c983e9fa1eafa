package decision

import (
	"context"
	"net/netip"
	"strings"

	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/routetypes"
)

// readPublications is the publication-stream fiber: one errgroup member
// reading the inbound queue and marshaling each entry onto the dispatch
// loop, per spec.md §5's single-execution-context rule. Mirrors the
// teacher's stream-reader fiber pattern (golang.org/x/sync/errgroup).
func (d *Decision) readPublications(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pub, ok := <-d.pubStream:
			if !ok {
				return nil
			}
			p := pub
			d.Env.Dispatch(func(dec *Decision) error {
				dec.applyPublication(p)
				return nil
			})
		}
	}
}

func (d *Decision) readStaticRoutes(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-d.staticStream:
			if !ok {
				return nil
			}
			u := upd
			d.Env.Dispatch(func(dec *Decision) error {
				dec.solver.PushRoutesDeltaUpdates(u)
				dec.pendingStatic = true
				dec.scheduleDebounce()
				return nil
			})
		}
	}
}

// linkStateFor returns the area's LinkState, creating it on first sight
// of a publication naming an area not present in the central config.
func (d *Decision) linkStateFor(area routetypes.Area) *linkstate.LinkState {
	if area == "" {
		area = routetypes.DefaultArea
	}
	ls, ok := d.areaLinkStates[area]
	if !ok {
		ls = linkstate.New(area, d.cfg.EnableOrderedFibProgramming)
		d.areaLinkStates[area] = ls
	}
	return ls
}

// applyPublication implements spec.md §4.5's publication-processing
// loop: adj:/prefix:/fibtime: keys are decoded and merged into the
// LSDB, expired keys are withdrawn, and any resulting change schedules
// a debounced recompute. Malformed entries are logged and skipped,
// never fatal (spec.md §7 taxonomy item 1).
func (d *Decision) applyPublication(pub Publication) {
	ls := d.linkStateFor(pub.Area)
	changed := false

	for key, val := range pub.KeyVals {
		switch {
		case strings.HasPrefix(key, "adj:"):
			changed = d.applyAdjKey(ls, strings.TrimPrefix(key, "adj:"), val) || changed
		case strings.HasPrefix(key, "prefix:"):
			changed = d.applyPrefixKey(strings.TrimPrefix(key, "prefix:"), val) || changed
		case strings.HasPrefix(key, "fibtime:"):
			d.applyFibTimeKey(strings.TrimPrefix(key, "fibtime:"), val)
		default:
			d.Env.Log.Warn("decision: unrecognized publication key", "key", key)
		}
	}

	for _, key := range pub.ExpiredKeys {
		switch {
		case strings.HasPrefix(key, "adj:"):
			node := routetypes.NodeName(strings.TrimPrefix(key, "adj:"))
			res := ls.DeleteAdjacencyDatabase(node)
			changed = changed || res.TopologyChanged
			delete(d.fibTimes, node)
		case strings.HasPrefix(key, "prefix:"):
			changed = d.expirePrefixKey(strings.TrimPrefix(key, "prefix:")) || changed
		}
	}

	if changed {
		d.pendingLinkState = true
		d.scheduleDebounce()
	}
}

// applyAdjKey decodes and merges one adj:<node> entry, computing the
// ordered-fib hold TTLs from the node's current hop distance before the
// update is applied (spec.md §4.5 step 1).
func (d *Decision) applyAdjKey(ls *linkstate.LinkState, node string, val []byte) bool {
	n := routetypes.NodeName(node)
	db, err := d.codec.DecodeAdjacencyDatabase(val)
	if err != nil {
		d.Env.Log.Warn("decision: malformed adjacency database", "node", n, "error", err)
		return false
	}
	db.ThisNode = n

	var holdUp, holdDown int
	if d.cfg.EnableOrderedFibProgramming {
		holdUp, _ = ls.GetHopsFromAToB(d.myNode, n)
		maxHops := ls.GetMaxHopsToNode(n)
		holdDown = maxHops - holdUp
		if holdDown < 0 {
			holdDown = 0
		}
	}

	res := ls.UpdateAdjacencyDatabase(db, holdUp, holdDown)
	metrics.AdjDbUpdate.Add(1)
	return res.TopologyChanged || res.NodeLabelChanged
}

// applyPrefixKey decodes prefix:<node> (a full-database replace) or
// prefix:<node>:<ip>/<plen> (a single-prefix delta that shadows the
// full-database entry for the same prefix).
func (d *Decision) applyPrefixKey(rest string, val []byte) bool {
	node, prefixStr, isDelta := splitPrefixKey(rest)
	if isDelta {
		entry, err := d.codec.DecodePrefixEntry(val)
		if err != nil {
			d.Env.Log.Warn("decision: malformed prefix entry", "node", node, "prefix", prefixStr, "error", err)
			return false
		}
		changed := d.prefixState.UpdatePrefixEntry(node, entry)
		metrics.PrefixDbUpdate.Add(1)
		return changed
	}

	entries, err := d.codec.DecodePrefixDatabase(val)
	if err != nil {
		d.Env.Log.Warn("decision: malformed prefix database", "node", node, "error", err)
		return false
	}
	changed := d.prefixState.UpdateFullPrefixDatabase(node, entries)
	metrics.PrefixDbUpdate.Add(1)
	return changed
}

func (d *Decision) expirePrefixKey(rest string) bool {
	node, prefixStr, isDelta := splitPrefixKey(rest)
	if isDelta {
		prefix, err := netip.ParsePrefix(prefixStr)
		if err != nil {
			d.Env.Log.Warn("decision: malformed expired prefix key", "node", node, "prefix", prefixStr, "error", err)
			return false
		}
		return d.prefixState.DeletePrefixEntry(node, prefix)
	}
	return d.prefixState.DeleteNode(node)
}

func (d *Decision) applyFibTimeKey(node string, val []byte) {
	n := routetypes.NodeName(node)
	ttl, err := d.codec.DecodeFibTime(val)
	if err != nil {
		d.Env.Log.Warn("decision: malformed fib time", "node", n, "error", err)
		return
	}
	d.fibTimes[n] = ttl
}

// splitPrefixKey splits a prefix:<node>[:<ip>/<plen>] key (with the
// "prefix:" prefix already trimmed) into its node and optional prefix
// parts.
func splitPrefixKey(rest string) (node routetypes.NodeName, prefix string, isDelta bool) {
	if idx := strings.Index(rest, ":"); idx >= 0 {
		return routetypes.NodeName(rest[:idx]), rest[idx+1:], true
	}
	return routetypes.NodeName(rest), "", false
}

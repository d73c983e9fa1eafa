// Package prefixstate maintains the global, cross-area map of which
// nodes advertise which prefixes, plus the loopback-address bookkeeping
// the solver needs for BGP next-hop resolution. It is grounded on
// original_source/openr/decision/PrefixState.cpp.
package prefixstate

import (
	"net/netip"

	"github.com/encodeous/routingd/routetypes"
	"github.com/gaissmai/bart"
)

type NodeName = routetypes.NodeName

// nodeView is one node's current set of prefix advertisements, stored
// either as a full replace or merged from per-prefix deltas (see
// effectiveEntries).
type nodeView struct {
	full    map[netip.Prefix]routetypes.PrefixEntry // last full-db replace, nil if none yet
	overlay map[netip.Prefix]routetypes.PrefixEntry // per-prefix deltas shadowing full
}

// PrefixState is the global advertiser map: for every prefix, the set
// of nodes advertising it and their respective PrefixEntry.
type PrefixState struct {
	nodes map[NodeName]*nodeView

	// prefixes is a bart.Table used for prefix-keyed lookups of the
	// advertiser set, mirroring the teacher's use of bart.Table for
	// prefix-keyed forwarding state in core/router.go.
	prefixes bart.Table[map[NodeName]routetypes.PrefixEntry]

	loopbackV4 map[NodeName]netip.Addr
	loopbackV6 map[NodeName]netip.Addr
}

func New() *PrefixState {
	return &PrefixState{
		nodes:      make(map[NodeName]*nodeView),
		loopbackV4: make(map[NodeName]netip.Addr),
		loopbackV6: make(map[NodeName]netip.Addr),
	}
}

func (ps *PrefixState) viewFor(node NodeName) *nodeView {
	v, ok := ps.nodes[node]
	if !ok {
		v = &nodeView{overlay: make(map[netip.Prefix]routetypes.PrefixEntry)}
		ps.nodes[node] = v
	}
	return v
}

// UpdateFullPrefixDatabase replaces node's complete set of
// advertisements. Per-prefix overlay entries (see UpdatePrefixEntry)
// remain in force, shadowing the same prefix in the new full set,
// matching PrefixState::updatePrefixDatabase's "prefix wins over
// full-db" precedence for the supplemented per-prefix delta feature.
// It reports whether any prefix's advertiser set changed.
func (ps *PrefixState) UpdateFullPrefixDatabase(node NodeName, entries map[netip.Prefix]routetypes.PrefixEntry) bool {
	v := ps.viewFor(node)
	old := ps.effectiveEntries(node)
	v.full = entries
	ps.trackLoopbacks(node, entries)
	return ps.reindex(node, old)
}

// UpdatePrefixEntry applies a single-prefix delta, shadowing whatever
// the node's full-db advertisement says about that prefix.
func (ps *PrefixState) UpdatePrefixEntry(node NodeName, entry routetypes.PrefixEntry) bool {
	v := ps.viewFor(node)
	old := ps.effectiveEntries(node)
	v.overlay[entry.Prefix] = entry
	if entry.Type == routetypes.PrefixTypeLoopback {
		ps.setLoopback(node, entry.Prefix.Addr())
	}
	return ps.reindex(node, old)
}

// DeletePrefixEntry removes a single per-prefix delta, falling back to
// whatever the full-db advertisement (if any) says about that prefix.
func (ps *PrefixState) DeletePrefixEntry(node NodeName, prefix netip.Prefix) bool {
	v := ps.viewFor(node)
	old := ps.effectiveEntries(node)
	delete(v.overlay, prefix)
	return ps.reindex(node, old)
}

// DeleteLoopbackPrefix is the supplemented
// PrefixState::deleteLoopbackPrefix operation: it drops a node's
// tracked loopback address without touching its other advertisements,
// used when a node withdraws its loopback specifically.
func (ps *PrefixState) DeleteLoopbackPrefix(node NodeName, isV4 bool) {
	if isV4 {
		delete(ps.loopbackV4, node)
	} else {
		delete(ps.loopbackV6, node)
	}
}

// DeleteNode removes every advertisement a node has made, as happens
// when its full prefix database is withdrawn.
func (ps *PrefixState) DeleteNode(node NodeName) bool {
	old := ps.effectiveEntries(node)
	delete(ps.nodes, node)
	delete(ps.loopbackV4, node)
	delete(ps.loopbackV6, node)
	changed := false
	for prefix := range old {
		if ps.removeAdvertiser(prefix, node) {
			changed = true
		}
	}
	return changed
}

func (ps *PrefixState) effectiveEntries(node NodeName) map[netip.Prefix]routetypes.PrefixEntry {
	v, ok := ps.nodes[node]
	if !ok {
		return nil
	}
	out := make(map[netip.Prefix]routetypes.PrefixEntry, len(v.full)+len(v.overlay))
	for p, e := range v.full {
		out[p] = e
	}
	for p, e := range v.overlay {
		out[p] = e
	}
	return out
}

func (ps *PrefixState) trackLoopbacks(node NodeName, entries map[netip.Prefix]routetypes.PrefixEntry) {
	sawV4, sawV6 := false, false
	for prefix, entry := range entries {
		if entry.Type != routetypes.PrefixTypeLoopback {
			continue
		}
		if prefix.Addr().Is4() {
			ps.loopbackV4[node] = prefix.Addr()
			sawV4 = true
		} else {
			ps.loopbackV6[node] = prefix.Addr()
			sawV6 = true
		}
	}
	if !sawV4 {
		delete(ps.loopbackV4, node)
	}
	if !sawV6 {
		delete(ps.loopbackV6, node)
	}
}

func (ps *PrefixState) setLoopback(node NodeName, addr netip.Addr) {
	if addr.Is4() {
		ps.loopbackV4[node] = addr
	} else {
		ps.loopbackV6[node] = addr
	}
}

// reindex recomputes the bart.Table advertiser-set entries touched by
// the transition from old to the node's current effective entries.
func (ps *PrefixState) reindex(node NodeName, old map[netip.Prefix]routetypes.PrefixEntry) bool {
	now := ps.effectiveEntries(node)
	changed := false

	for prefix, entry := range now {
		prior, existed := old[prefix]
		if !existed || prior != entry {
			ps.setAdvertiser(prefix, node, entry)
			changed = true
		}
		delete(old, prefix)
	}
	for prefix := range old {
		if ps.removeAdvertiser(prefix, node) {
			changed = true
		}
	}
	return changed
}

func (ps *PrefixState) setAdvertiser(prefix netip.Prefix, node NodeName, entry routetypes.PrefixEntry) {
	advertisers, _ := ps.prefixes.Get(prefix)
	if advertisers == nil {
		advertisers = make(map[NodeName]routetypes.PrefixEntry)
	}
	advertisers[node] = entry
	ps.prefixes.Insert(prefix, advertisers)
}

func (ps *PrefixState) removeAdvertiser(prefix netip.Prefix, node NodeName) bool {
	advertisers, ok := ps.prefixes.Get(prefix)
	if !ok {
		return false
	}
	if _, present := advertisers[node]; !present {
		return false
	}
	delete(advertisers, node)
	if len(advertisers) == 0 {
		ps.prefixes.Delete(prefix)
	} else {
		ps.prefixes.Insert(prefix, advertisers)
	}
	return true
}

// Advertisers returns every node currently advertising prefix and its
// PrefixEntry, the input to best-announcing-node selection.
func (ps *PrefixState) Advertisers(prefix netip.Prefix) map[NodeName]routetypes.PrefixEntry {
	advertisers, _ := ps.prefixes.Get(prefix)
	return advertisers
}

// Prefixes returns every prefix with at least one advertiser.
func (ps *PrefixState) Prefixes() []netip.Prefix {
	var out []netip.Prefix
	ps.prefixes.All()(func(p netip.Prefix, _ map[NodeName]routetypes.PrefixEntry) bool {
		out = append(out, p)
		return true
	})
	return out
}

// GetLoopbackVias returns the loopback next-hop address for every node
// in nodes that has one in the requested address family, implementing
// PrefixState::getLoopbackVias. It returns addresses only; attaching an
// IGP metric is the caller's job (it needs a LinkState, not
// PrefixState).
func (ps *PrefixState) GetLoopbackVias(nodes []NodeName, isV4 bool) map[NodeName]netip.Addr {
	table := ps.loopbackV6
	if isV4 {
		table = ps.loopbackV4
	}
	out := make(map[NodeName]netip.Addr, len(nodes))
	for _, n := range nodes {
		if addr, ok := table[n]; ok {
			out[n] = addr
		}
	}
	return out
}

// NumNodesWithLoopback implements the num_nodes_v4_loopbacks /
// num_nodes_v6_loopbacks counters.
func (ps *PrefixState) NumNodesWithLoopback(isV4 bool) int {
	if isV4 {
		return len(ps.loopbackV4)
	}
	return len(ps.loopbackV6)
}

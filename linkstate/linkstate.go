// Package linkstate maintains one administrative area's link-state
// graph and answers SPF/KSP/hop queries over it. It mirrors the
// teacher's approach of keeping all mutation on a single owner (here,
// the Decision orchestrator) and exposing read-only query methods that
// are total: queries about absent nodes return empty results rather
// than errors, matching spec.md §4.1's failure semantics.
package linkstate

import (
	"net/netip"

	"github.com/encodeous/routingd/routetypes"
)

type NodeName = routetypes.NodeName
type Metric = routetypes.Metric

// Edge is one usable, symmetric link between two nodes, combining both
// directions' adjacency records.
type Edge struct {
	A, B         NodeName
	MetricAB     Metric // cost from A to B
	MetricBA     Metric // cost from B to A
	IfaceA       string
	IfaceB       string
	NhV4A, NhV6A netip.Addr
	NhV4B, NhV6B netip.Addr
	AdjLabelA    int32
	AdjLabelB    int32
	Area         routetypes.Area
	Up           bool

	// ordered-fib hold bookkeeping
	HoldUp   int // hops remaining before a newly-usable edge counts as up
	HoldDown int // hops remaining before a newly-unusable edge counts as down
}

// OtherNode returns the endpoint opposite from.
func (e *Edge) OtherNode(from NodeName) NodeName {
	if e.A == from {
		return e.B
	}
	return e.A
}

// MetricFromNode returns the edge's cost when traversed starting at from.
func (e *Edge) MetricFromNode(from NodeName) Metric {
	if e.A == from {
		return e.MetricAB
	}
	return e.MetricBA
}

// IfaceFromNode returns the local interface used to reach the other side
// from the given endpoint.
func (e *Edge) IfaceFromNode(from NodeName) string {
	if e.A == from {
		return e.IfaceA
	}
	return e.IfaceB
}

func (e *Edge) NhV4FromNode(from NodeName) netip.Addr {
	if e.A == from {
		return e.NhV4A
	}
	return e.NhV4B
}

func (e *Edge) NhV6FromNode(from NodeName) netip.Addr {
	if e.A == from {
		return e.NhV6A
	}
	return e.NhV6B
}

// AdjLabelFromNode returns the adjacency label owned by the given
// endpoint for this link (0 if none).
func (e *Edge) AdjLabelFromNode(from NodeName) int32 {
	if e.A == from {
		return e.AdjLabelA
	}
	return e.AdjLabelB
}

// IsUp reports whether the edge is currently usable, accounting for
// ordered-fib holds.
func (e *Edge) IsUp() bool {
	if !e.Up {
		return false
	}
	return e.HoldUp <= 0
}

// UpdateResult reports what changed as a result of applying an
// adjacency-database update.
type UpdateResult struct {
	TopologyChanged  bool
	NodeLabelChanged bool
}

// SpfResult maps every node reachable from a source to its distance and
// the set of first-hop neighbors on some equal-cost shortest path.
type SpfResult map[NodeName]SpfNode

type SpfNode struct {
	metric   Metric
	nextHops map[NodeName]struct{}
}

func (n SpfNode) Metric() Metric { return n.metric }

func (n SpfNode) NextHops() []NodeName {
	out := make([]NodeName, 0, len(n.nextHops))
	for nh := range n.nextHops {
		out = append(out, nh)
	}
	return out
}

// Path is a sequence of edges walked from some source node.
type Path []*Edge

// TotalMetric sums the per-hop cost of walking the path starting at src.
func (p Path) TotalMetric(src NodeName) Metric {
	var total Metric
	cur := src
	for _, e := range p {
		total += e.MetricFromNode(cur)
		cur = e.OtherNode(cur)
	}
	return total
}

// Nodes returns the ordered list of nodes visited, starting with src.
func (p Path) Nodes(src NodeName) []NodeName {
	out := make([]NodeName, 0, len(p)+1)
	out = append(out, src)
	cur := src
	for _, e := range p {
		cur = e.OtherNode(cur)
		out = append(out, cur)
	}
	return out
}

// LinkState owns one area's adjacency databases and the edge set
// derived from them.
type LinkState struct {
	area       routetypes.Area
	orderedFib bool

	adjDbs map[NodeName]routetypes.AdjacencyDatabase
	edges  map[NodeName][]*Edge // adjacency list, both directions recorded

	spfCache      map[NodeName]SpfResult
	parentScratch *parentEdgeCache
}

func New(area routetypes.Area, orderedFib bool) *LinkState {
	return &LinkState{
		area:       area,
		orderedFib: orderedFib,
		adjDbs:     make(map[NodeName]routetypes.AdjacencyDatabase),
		edges:      make(map[NodeName][]*Edge),
		spfCache:   make(map[NodeName]SpfResult),
	}
}

func (ls *LinkState) invalidateSpf() {
	ls.spfCache = make(map[NodeName]SpfResult)
}

// UpdateAdjacencyDatabase replaces node's prior AdjacencyDatabase and
// recomputes the derived edge set. holdUpTtl/holdDownTtl are only
// meaningful when ordered-fib is enabled; pass 0 otherwise.
func (ls *LinkState) UpdateAdjacencyDatabase(db routetypes.AdjacencyDatabase, holdUpTtl, holdDownTtl int) UpdateResult {
	old, existed := ls.adjDbs[db.ThisNode]
	nodeLabelChanged := !existed || old.NodeLabel != db.NodeLabel

	ls.adjDbs[db.ThisNode] = db

	topologyChanged := ls.rebuildEdges(holdUpTtl, holdDownTtl)
	if topologyChanged || nodeLabelChanged {
		ls.invalidateSpf()
	}
	return UpdateResult{TopologyChanged: topologyChanged, NodeLabelChanged: nodeLabelChanged}
}

// DeleteAdjacencyDatabase removes node's adjacency view entirely,
// equivalent to updating with an empty database.
func (ls *LinkState) DeleteAdjacencyDatabase(node NodeName) UpdateResult {
	_, existed := ls.adjDbs[node]
	delete(ls.adjDbs, node)
	topologyChanged := ls.rebuildEdges(0, 0)
	if existed {
		ls.invalidateSpf()
	}
	return UpdateResult{TopologyChanged: topologyChanged || existed, NodeLabelChanged: existed}
}

func (ls *LinkState) HasNode(node NodeName) bool {
	_, ok := ls.adjDbs[node]
	return ok
}

func (ls *LinkState) IsNodeOverloaded(node NodeName) bool {
	db, ok := ls.adjDbs[node]
	return ok && db.Overloaded
}

func (ls *LinkState) GetAdjacencyDatabases() map[NodeName]routetypes.AdjacencyDatabase {
	return ls.adjDbs
}

// LinksFromNode returns only currently-usable edges touching node.
func (ls *LinkState) LinksFromNode(node NodeName) []*Edge {
	all := ls.edges[node]
	out := make([]*Edge, 0, len(all))
	for _, e := range all {
		if e.IsUp() {
			out = append(out, e)
		}
	}
	return out
}

// GetMetricFromAToB returns the weight of the direct link from a to b,
// if a usable one exists.
func (ls *LinkState) GetMetricFromAToB(a, b NodeName) (Metric, bool) {
	for _, e := range ls.LinksFromNode(a) {
		if e.OtherNode(a) == b {
			return e.MetricFromNode(a), true
		}
	}
	return 0, false
}

func (ls *LinkState) NumLinks() int {
	seen := make(map[*Edge]bool)
	count := 0
	for _, edges := range ls.edges {
		for _, e := range edges {
			if !seen[e] {
				seen[e] = true
				count++
			}
		}
	}
	return count
}

func (ls *LinkState) HasHolds() bool {
	for _, edges := range ls.edges {
		for _, e := range edges {
			if e.HoldUp > 0 || e.HoldDown > 0 {
				return true
			}
		}
	}
	return false
}

// DecrementHolds steps every hold counter by one hop and reports whether
// the logical topology (as seen by IsUp) changed as a result.
func (ls *LinkState) DecrementHolds() UpdateResult {
	changed := false
	seen := make(map[*Edge]bool)
	for _, edges := range ls.edges {
		for _, e := range edges {
			if seen[e] {
				continue // each edge is listed under both endpoints
			}
			seen[e] = true
			wasUp := e.IsUp()
			if e.HoldUp > 0 {
				e.HoldUp--
			}
			if e.HoldDown > 0 {
				e.HoldDown--
				if e.HoldDown == 0 {
					e.Up = false
				}
			}
			if e.IsUp() != wasUp {
				changed = true
			}
		}
	}
	if changed {
		ls.invalidateSpf()
	}
	return UpdateResult{TopologyChanged: changed}
}

// rebuildEdges recomputes the symmetric edge set from the raw adjacency
// databases: a link exists only when both endpoints advertise an
// adjacency naming the other (the symmetric-adjacency invariant of
// spec.md §4.1). It reports whether the set of usable edges changed.
func (ls *LinkState) rebuildEdges(holdUpTtl, holdDownTtl int) bool {
	prev := ls.edges
	next := make(map[NodeName][]*Edge)

	prevUp := make(map[string]bool)
	prevHoldUp := make(map[string]int)
	prevHoldDown := make(map[string]int)
	for _, edges := range prev {
		for _, e := range edges {
			k := edgeKey(e.A, e.B)
			prevUp[k] = e.IsUp()
			prevHoldUp[k] = e.HoldUp
			prevHoldDown[k] = e.HoldDown
		}
	}

	seen := make(map[string]bool)
	for node, db := range ls.adjDbs {
		for _, adj := range db.Adjacencies {
			if adj.OwnerNode != node {
				continue // malformed entry, ignore
			}
			other, ok := ls.adjDbs[adj.NeighborNode]
			if !ok {
				continue
			}
			var back *routetypes.Adjacency
			for i := range other.Adjacencies {
				if other.Adjacencies[i].NeighborNode == node {
					back = &other.Adjacencies[i]
					break
				}
			}
			if back == nil {
				continue // not symmetric yet
			}
			k := edgeKey(node, adj.NeighborNode)
			if seen[k] {
				continue
			}
			seen[k] = true

			a, b := node, adj.NeighborNode
			adjA, adjB := adj, *back
			if a > b {
				a, b = b, a
				adjA, adjB = *back, adj
			}

			wasUp := prevUp[k]
			isUp := adjA.Up && adjB.Up

			holdUp := prevHoldUp[k]
			holdDown := prevHoldDown[k]
			if ls.orderedFib {
				if isUp && !wasUp {
					holdUp = holdUpTtl
				}
				if isUp {
					holdDown = 0
				} else if wasUp && holdDown == 0 {
					holdDown = holdDownTtl
				}
			} else {
				holdUp, holdDown = 0, 0
			}

			e := &Edge{
				A: a, B: b,
				MetricAB: boolMetric(a == node, adj.Metric, back.Metric),
				MetricBA: boolMetric(a == node, back.Metric, adj.Metric),
				IfaceA:   adjA.LocalIface,
				IfaceB:   adjB.LocalIface,
				NhV4A:    adjA.NextHopV4, NhV6A: adjA.NextHopV6,
				NhV4B: adjB.NextHopV4, NhV6B: adjB.NextHopV6,
				AdjLabelA: adjA.AdjacencyLabel,
				AdjLabelB: adjB.AdjacencyLabel,
				Area:      adj.Area,
				Up:        isUp || holdDown > 0,
				HoldUp:    holdUp,
				HoldDown:  holdDown,
			}
			next[a] = append(next[a], e)
			next[b] = append(next[b], e)
		}
	}
	ls.edges = next

	nowUp := make(map[string]bool, len(seen))
	for _, edges := range next {
		for _, e := range edges {
			nowUp[edgeKey(e.A, e.B)] = e.IsUp()
		}
	}
	if len(nowUp) != len(prevUp) {
		return true
	}
	for k, up := range nowUp {
		if prevUp[k] != up {
			return true
		}
	}
	return false
}

func boolMetric(cond bool, a, b Metric) Metric {
	if cond {
		return a
	}
	return b
}

func edgeKey(a, b NodeName) string {
	if a < b {
		return string(a) + "|" + string(b)
	}
	return string(b) + "|" + string(a)
}

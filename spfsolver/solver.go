// Package spfsolver turns one node's view of a LinkState area plus the
// global PrefixState into a RouteDb: best-path selection (openr-ECMP,
// BGP metric-vector, KSP2), MPLS label synthesis for node and adjacency
// labels, and static-MPLS-route squashing. Grounded on
// original_source/openr/decision/Decision.cpp's SpfSolverImpl.
package spfsolver

import (
	"net/netip"

	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/routetypes"
)

type NodeName = routetypes.NodeName

// Config carries the operator-configured flags that change solver
// behavior (spec.md §6's recognized options, minus the ones owned by
// Decision rather than the solver).
type Config struct {
	EnableV4        bool
	BgpUseIgpMetric bool
	BgpDryRun       bool
	ComputeLfaPaths bool
}

// StaticDelta is one queued update to the solver's static-MPLS table,
// mirroring RouteDatabaseDelta's MPLS half.
type StaticDelta struct {
	Update []routetypes.RibMplsEntry
	Delete []int32
}

// Solver holds configuration flags, the consolidated static-MPLS table,
// and the queue of pending static-MPLS deltas. It is invoked once per
// recompute via BuildRouteDb; it is not itself internally
// goroutine-safe, matching spec.md §5's single-execution-context model.
type Solver struct {
	cfg Config

	staticMpls map[int32]routetypes.RibMplsEntry
	pending    []StaticDelta
}

func New(cfg Config) *Solver {
	return &Solver{
		cfg:        cfg,
		staticMpls: make(map[int32]routetypes.RibMplsEntry),
	}
}

// PushRoutesDeltaUpdates queues a static-MPLS delta for the next call
// to ProcessStaticRouteUpdates.
func (s *Solver) PushRoutesDeltaUpdates(delta StaticDelta) {
	s.pending = append(s.pending, delta)
}

// ProcessStaticRouteUpdates squashes every queued delta (later wins; an
// update cancels a pending delete of the same label and vice versa),
// applies the result to the solver's static-MPLS table, and returns the
// consolidated delta for publication.
func (s *Solver) ProcessStaticRouteUpdates() StaticDelta {
	updates := make(map[int32]routetypes.RibMplsEntry)
	deletes := make(map[int32]bool)

	for _, d := range s.pending {
		for _, u := range d.Update {
			updates[u.Label] = u
			delete(deletes, u.Label)
		}
		for _, del := range d.Delete {
			deletes[del] = true
			delete(updates, del)
		}
	}
	s.pending = nil

	consolidated := StaticDelta{}
	for label, entry := range updates {
		s.staticMpls[label] = entry
		consolidated.Update = append(consolidated.Update, entry)
	}
	for label := range deletes {
		if _, existed := s.staticMpls[label]; existed {
			delete(s.staticMpls, label)
			consolidated.Delete = append(consolidated.Delete, label)
		}
	}
	return consolidated
}

// GetStaticRoutes returns the solver's consolidated static-MPLS table,
// the supplemented StaticRoutes RPC of SPEC_FULL.md.
func (s *Solver) GetStaticRoutes() map[int32]routetypes.RibMplsEntry {
	out := make(map[int32]routetypes.RibMplsEntry, len(s.staticMpls))
	for k, v := range s.staticMpls {
		out[k] = v
	}
	return out
}

func (s *Solver) staticRoute(label int32) (routetypes.RibMplsEntry, bool) {
	e, ok := s.staticMpls[label]
	return e, ok
}

// BuildRouteDb is the top-level buildRouteDb algorithm of spec.md
// §4.3, scoped to a single area's LinkState. The Decision orchestrator
// unions per-area results across areas (spec.md §9 Open Question #1).
func (s *Solver) BuildRouteDb(myNode NodeName, ls *linkstate.LinkState, ps *prefixstate.PrefixState) (*routetypes.RouteDb, error) {
	if !ls.HasNode(myNode) {
		return nil, nil
	}
	rdb := routetypes.NewRouteDb()

	for _, prefix := range ps.Prefixes() {
		advertisers := ps.Advertisers(prefix)
		entry, ok := s.buildPrefixEntry(myNode, prefix, advertisers, ls, ps)
		if ok {
			rdb.Unicast[prefix] = *entry
		}
	}

	s.buildNodeLabelRoutes(myNode, ls, rdb)
	s.buildAdjacencyLabelRoutes(myNode, ls, rdb)

	return rdb, nil
}

func (s *Solver) buildPrefixEntry(myNode NodeName, prefix netip.Prefix, advertisers map[NodeName]routetypes.PrefixEntry, ls *linkstate.LinkState, ps *prefixstate.PrefixState) (*routetypes.RibUnicastEntry, bool) {
	if len(advertisers) == 0 {
		return nil, false
	}

	hasBgp := false
	hasNonBgp := false
	for _, e := range advertisers {
		if e.Type == routetypes.PrefixTypeBGP {
			hasBgp = true
		} else {
			hasNonBgp = true
		}
	}
	if hasBgp && hasNonBgp {
		metrics.SkippedUnicastRoute.Add(1)
		return nil, false
	}
	if hasBgp {
		for _, e := range advertisers {
			if e.MetricVector == nil {
				metrics.SkippedUnicastRoute.Add(1)
				return nil, false
			}
		}
	}

	if self, ok := advertisers[myNode]; ok && !hasBgp {
		_ = self
		return nil, false // self-shadowing, spec.md invariant 2
	}

	if prefix.Addr().Is4() && !s.cfg.EnableV4 {
		return nil, false
	}

	algo := routetypes.ForwardingAlgorithmSPECMP
	for _, e := range advertisers {
		algo = e.ForwardingAlgorithm
		break
	}

	useKsp2 := algo == routetypes.ForwardingAlgorithmKSP2EdECMP

	best := s.getBestAnnouncingNodes(myNode, advertisers, hasBgp, useKsp2, ls, ps)
	if !best.success || len(best.nodes) == 0 {
		return nil, false
	}

	if useKsp2 {
		return s.selectKsp2(myNode, prefix, best, advertisers, ls, ps, hasBgp)
	}
	if hasBgp {
		return s.selectEcmpBgp(myNode, prefix, best, advertisers, ls, ps)
	}
	return s.selectEcmpOpenr(myNode, prefix, best, advertisers, ls)
}

// buildNodeLabelRoutes implements spec.md §4.3 step 3: one MPLS RIB
// entry per node-label advertisement, with the higher node name winning
// collisions.
func (s *Solver) buildNodeLabelRoutes(myNode NodeName, ls *linkstate.LinkState, rdb *routetypes.RouteDb) {
	owners := make(map[int32]NodeName)
	for node, db := range ls.GetAdjacencyDatabases() {
		if db.NodeLabel == 0 || !routetypes.IsMplsLabelValid(db.NodeLabel) {
			continue
		}
		if existing, ok := owners[db.NodeLabel]; ok {
			metrics.DuplicateNodeLabel.Add(1)
			if node > existing {
				owners[db.NodeLabel] = node
			}
			continue
		}
		owners[db.NodeLabel] = node
	}

	for label, node := range owners {
		if node == myNode {
			rdb.Mpls[label] = routetypes.RibMplsEntry{
				Label: label,
				NextHops: []routetypes.NextHop{{
					MplsAction: &routetypes.MplsAction{Code: routetypes.MplsActionPopAndLookup},
				}},
			}
			continue
		}
		nhs, _, ok := s.nodeLabelNextHops(myNode, node, label, ls)
		if !ok || len(nhs) == 0 {
			metrics.NoRouteToLabel.Add(1)
			metrics.SkippedMplsRoute.Add(1)
			continue
		}
		rdb.Mpls[label] = routetypes.RibMplsEntry{Label: label, NextHops: nhs}
	}
}

// nodeLabelNextHops computes SWAP/PHP next-hops to the owner of a node
// label, via the area's SPF result.
func (s *Solver) nodeLabelNextHops(myNode, dst NodeName, label int32, ls *linkstate.LinkState) ([]routetypes.NextHop, routetypes.Metric, bool) {
	spf := ls.GetSpfResult(myNode)
	node, ok := spf[dst]
	if !ok {
		return nil, 0, false
	}
	var out []routetypes.NextHop
	for _, e := range ls.LinksFromNode(myNode) {
		nbr := e.OtherNode(myNode)
		if _, isFirstHop := nextHopSet(node)[nbr]; !isFirstHop {
			continue
		}
		action := &routetypes.MplsAction{Code: routetypes.MplsActionSwap, Label: label}
		if nbr == dst {
			action = &routetypes.MplsAction{Code: routetypes.MplsActionPHP}
		}
		out = append(out, routetypes.NextHop{
			Address:    preferAddr(e.NhV4FromNode(myNode), e.NhV6FromNode(myNode)),
			Iface:      e.IfaceFromNode(myNode),
			Metric:     node.Metric(),
			MplsAction: action,
			Area:       e.Area,
			AreaSet:    true,
		})
	}
	return out, node.Metric(), len(out) > 0
}

// buildAdjacencyLabelRoutes implements spec.md §4.3 step 4: each usable
// local link with a valid adjacency label gets a direct PHP route.
func (s *Solver) buildAdjacencyLabelRoutes(myNode NodeName, ls *linkstate.LinkState, rdb *routetypes.RouteDb) {
	for _, e := range ls.LinksFromNode(myNode) {
		label := e.AdjLabelFromNode(myNode)
		if label == 0 || !routetypes.IsMplsLabelValid(label) {
			continue
		}
		rdb.Mpls[label] = routetypes.RibMplsEntry{
			Label: label,
			NextHops: []routetypes.NextHop{{
				Address:    preferAddr(e.NhV4FromNode(myNode), e.NhV6FromNode(myNode)),
				Iface:      e.IfaceFromNode(myNode),
				Metric:     e.MetricFromNode(myNode),
				MplsAction: &routetypes.MplsAction{Code: routetypes.MplsActionPHP},
				Area:       e.Area,
				AreaSet:    true,
			}},
		}
	}
}

func preferAddr(v4, v6 netip.Addr) netip.Addr {
	if v4.IsValid() {
		return v4
	}
	return v6
}

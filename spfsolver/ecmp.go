package spfsolver

import (
	"net/netip"

	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/routetypes"
)

// nhKey is the (neighbor, destination-or-empty) key of
// getNextHopsWithMetric's result map; dest is empty when
// perDestination is false, consolidating equal-cost routes.
type nhKey struct {
	neighbor NodeName
	dest     NodeName // zero value when not per-destination
}

// getNextHopsWithMetric implements spec.md §4.3.5.
func (s *Solver) getNextHopsWithMetric(myNode NodeName, dstNodes map[NodeName]struct{}, perDestination bool, ls *linkstate.LinkState) (routetypes.Metric, map[nhKey]routetypes.Metric) {
	spf := ls.GetSpfResult(myNode)

	var shortest routetypes.Metric
	first := true
	for dst := range dstNodes {
		sp, ok := spf[dst]
		if !ok {
			continue
		}
		if first || sp.Metric() < shortest {
			shortest = sp.Metric()
			first = false
		}
	}
	if first {
		return 0, nil
	}

	out := make(map[nhKey]routetypes.Metric)
	edgeMetric := func(neighbor NodeName) (routetypes.Metric, bool) {
		return ls.GetMetricFromAToB(myNode, neighbor)
	}

	for dst := range dstNodes {
		sp, ok := spf[dst]
		if !ok || sp.Metric() != shortest {
			continue
		}
		for _, nbr := range sp.NextHops() {
			w, ok := edgeMetric(nbr)
			if !ok {
				continue
			}
			key := nhKey{neighbor: nbr}
			if perDestination {
				key.dest = dst
			}
			m := shortest - w
			if cur, exists := out[key]; !exists || m < cur {
				out[key] = m
			}
		}
	}

	if s.cfg.ComputeLfaPaths {
		for _, e := range ls.LinksFromNode(myNode) {
			nbr := e.OtherNode(myNode)
			nbrSpf := ls.GetSpfResult(nbr)
			distNToS, ok := nbrSpf[myNode]
			if !ok {
				continue
			}
			for dst := range dstNodes {
				dNd, ok := nbrSpf[dst]
				if !ok {
					continue
				}
				if dNd.Metric() < shortest+distNToS.Metric() {
					key := nhKey{neighbor: nbr}
					if perDestination {
						key.dest = dst
					}
					if cur, exists := out[key]; !exists || dNd.Metric() < cur {
						out[key] = dNd.Metric()
					}
				}
			}
		}
	}

	return shortest, out
}

// getNextHopsThrift implements spec.md §4.3.6.
func (s *Solver) getNextHopsThrift(myNode NodeName, shortest routetypes.Metric, nextHops map[nhKey]routetypes.Metric, dstNodes map[NodeName]struct{}, isV4 bool, swapLabel int32, hasSwapLabel bool, perDestAction func(dest NodeName) (*routetypes.MplsAction, bool), ls *linkstate.LinkState) []routetypes.NextHop {
	var out []routetypes.NextHop
	for _, e := range ls.LinksFromNode(myNode) {
		nbr := e.OtherNode(myNode)
		edgeM := e.MetricFromNode(myNode)

		for key, storedMetric := range nextHops {
			if key.neighbor != nbr {
				continue
			}
			dest := key.dest

			if _, isDst := dstNodes[nbr]; dest != "" && isDst && nbr != dest {
				continue
			}
			if !s.cfg.ComputeLfaPaths && storedMetric+edgeM != shortest {
				continue
			}

			var action *routetypes.MplsAction
			if hasSwapLabel {
				onlyDest := len(dstNodes) == 1
				if _, isOnlyDst := dstNodes[nbr]; isOnlyDst && onlyDest {
					action = &routetypes.MplsAction{Code: routetypes.MplsActionPHP}
				} else {
					action = &routetypes.MplsAction{Code: routetypes.MplsActionSwap, Label: swapLabel}
				}
			} else if dest != "" && dest != nbr && perDestAction != nil {
				a, ok := perDestAction(dest)
				if !ok {
					continue
				}
				action = a
			}

			addr := e.NhV6FromNode(myNode)
			if isV4 {
				addr = e.NhV4FromNode(myNode)
			}
			out = append(out, routetypes.NextHop{
				Address:    addr,
				Iface:      e.IfaceFromNode(myNode),
				Metric:     edgeM + storedMetric,
				MplsAction: action,
				Area:       e.Area,
				AreaSet:    true,
			})
		}
	}
	return out
}

// selectEcmpOpenr implements spec.md §4.3.2.
func (s *Solver) selectEcmpOpenr(myNode NodeName, prefix netip.Prefix, best BestPathResult, advertisers map[NodeName]routetypes.PrefixEntry, ls *linkstate.LinkState) (*routetypes.RibUnicastEntry, bool) {
	isV4 := prefix.Addr().Is4()
	entryForFamily := firstEntry(advertisers)
	perDestination := entryForFamily.ForwardingType == routetypes.ForwardingTypeSRMPLS

	shortest, nhm := s.getNextHopsWithMetric(myNode, best.nodes, perDestination, ls)
	if len(nhm) == 0 {
		metrics.NoRouteToPrefix.Add(1)
		return nil, false
	}

	var hasSwap bool
	var swapLabel int32
	var perDestAction func(NodeName) (*routetypes.MplsAction, bool)
	if perDestination {
		perDestAction = func(dest NodeName) (*routetypes.MplsAction, bool) {
			db, ok := ls.GetAdjacencyDatabases()[dest]
			if !ok || !routetypes.IsMplsLabelValid(db.NodeLabel) {
				return nil, false
			}
			return &routetypes.MplsAction{Code: routetypes.MplsActionPush, Labels: []int32{db.NodeLabel}}, true
		}
	}

	nhs := s.getNextHopsThrift(myNode, shortest, nhm, best.nodes, isV4, swapLabel, hasSwap, perDestAction, ls)
	if len(nhs) == 0 {
		metrics.NoRouteToPrefix.Add(1)
		return nil, false
	}
	return &routetypes.RibUnicastEntry{Prefix: prefix, NextHops: nhs}, true
}

// selectEcmpBgp implements spec.md §4.3.3.
func (s *Solver) selectEcmpBgp(myNode NodeName, prefix netip.Prefix, best BestPathResult, advertisers map[NodeName]routetypes.PrefixEntry, ls *linkstate.LinkState, ps *prefixstate.PrefixState) (*routetypes.RibUnicastEntry, bool) {
	isV4 := prefix.Addr().Is4()
	shortest, nhm := s.getNextHopsWithMetric(myNode, best.nodes, false, ls)
	if len(nhm) == 0 {
		metrics.NoRouteToPrefix.Add(1)
		return nil, false
	}
	nhs := s.getNextHopsThrift(myNode, shortest, nhm, best.nodes, isV4, 0, false, nil, ls)
	if len(nhs) == 0 {
		metrics.NoRouteToPrefix.Add(1)
		return nil, false
	}

	vias := ps.GetLoopbackVias([]NodeName{best.bestNode}, isV4)
	addr, ok := vias[best.bestNode]
	if !ok {
		metrics.MissingLoopbackAddr.Add(1)
		return nil, false
	}

	bpe := advertisers[best.bestNode]
	return &routetypes.RibUnicastEntry{
		Prefix:          prefix,
		NextHops:        nhs,
		BestPrefixEntry: &bpe,
		DoNotInstall:    s.cfg.BgpDryRun,
		BestNextHop:     &routetypes.NextHop{Address: addr, Metric: best.bestIgpMetric},
	}, true
}

func firstEntry(m map[NodeName]routetypes.PrefixEntry) routetypes.PrefixEntry {
	for _, e := range m {
		return e
	}
	return routetypes.PrefixEntry{}
}

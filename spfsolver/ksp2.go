package spfsolver

import (
	"net/netip"

	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/routetypes"
)

// selectKsp2 implements spec.md §4.3.4.
func (s *Solver) selectKsp2(myNode NodeName, prefix netip.Prefix, best BestPathResult, advertisers map[NodeName]routetypes.PrefixEntry, ls *linkstate.LinkState, ps *prefixstate.PrefixState, hasBgp bool) (*routetypes.RibUnicastEntry, bool) {
	isV4 := prefix.Addr().Is4()
	selfContained := false
	var takenFirst []linkstate.Path

	var nhs []routetypes.NextHop

	for dst := range best.nodes {
		if dst == myNode {
			selfContained = true
			continue
		}

		firstPaths := ls.GetKthPaths(myNode, dst, 1)
		for _, p := range firstPaths {
			takenFirst = append(takenFirst, p)
			if nh, ok := s.ksp2NextHop(myNode, dst, p, advertisers, isV4, ls); ok {
				nhs = append(nhs, nh)
			}
		}

		secondPaths := ls.GetKthPaths(myNode, dst, 2)
		for _, p := range secondPaths {
			candidateNodes := p.Nodes(myNode)
			redundant := false
			for _, taken := range takenFirst {
				if linkstate.PathAInPathB(taken.Nodes(myNode), candidateNodes) {
					redundant = true
					break
				}
			}
			if redundant {
				continue
			}
			if nh, ok := s.ksp2NextHop(myNode, dst, p, advertisers, isV4, ls); ok {
				nhs = append(nhs, nh)
			}
		}
	}

	dynamicCount := len(nhs)

	if selfContained {
		if entry, ok := advertisers[myNode]; ok && entry.PrependLabel != nil {
			if staticRoute, ok := s.staticRoute(*entry.PrependLabel); ok {
				for _, snh := range staticRoute.NextHops {
					nhs = append(nhs, routetypes.NextHop{
						Address: snh.Address,
						Metric:  0,
					})
				}
			}
		}
	}

	var maxMinNexthop int64
	for node := range best.nodes {
		if e, ok := advertisers[node]; ok && e.MinNexthop != nil && *e.MinNexthop > maxMinNexthop {
			maxMinNexthop = *e.MinNexthop
		}
	}
	if maxMinNexthop > 0 && int64(dynamicCount) < maxMinNexthop {
		return nil, false
	}

	if len(nhs) == 0 {
		metrics.NoRouteToPrefix.Add(1)
		return nil, false
	}

	entry := &routetypes.RibUnicastEntry{Prefix: prefix, NextHops: nhs}
	if hasBgp {
		vias := ps.GetLoopbackVias([]NodeName{best.bestNode}, isV4)
		addr, ok := vias[best.bestNode]
		if !ok {
			metrics.MissingLoopbackAddr.Add(1)
			return nil, false
		}
		bpe := advertisers[best.bestNode]
		entry.BestPrefixEntry = &bpe
		entry.BestNextHop = &routetypes.NextHop{Address: addr, Metric: best.bestIgpMetric}
		entry.DoNotInstall = s.cfg.BgpDryRun
	}
	return entry, true
}

// ksp2NextHop translates one explicit path into a single next-hop
// carrying the PUSH label stack needed to steer traffic along it.
func (s *Solver) ksp2NextHop(myNode, dst NodeName, path linkstate.Path, advertisers map[NodeName]routetypes.PrefixEntry, isV4 bool, ls *linkstate.LinkState) (routetypes.NextHop, bool) {
	if len(path) == 0 {
		return routetypes.NextHop{}, false
	}
	nodes := path.Nodes(myNode)[1:] // downstream nodes, excluding myNode

	adjDbs := ls.GetAdjacencyDatabases()
	var labels []int32
	for _, n := range nodes {
		db, ok := adjDbs[n]
		if ok && routetypes.IsMplsLabelValid(db.NodeLabel) {
			labels = append(labels, db.NodeLabel)
		}
	}
	if len(labels) > 0 {
		labels = labels[1:] // pop first-hop label: PHP already strips it
	}
	if entry, ok := advertisers[dst]; ok && entry.PrependLabel != nil {
		labels = append([]int32{*entry.PrependLabel}, labels...)
	}

	firstEdge := path[0]
	addr := firstEdge.NhV6FromNode(myNode)
	if isV4 {
		addr = firstEdge.NhV4FromNode(myNode)
	}

	var action *routetypes.MplsAction
	if len(labels) > 0 {
		action = &routetypes.MplsAction{Code: routetypes.MplsActionPush, Labels: labels}
	}

	return routetypes.NextHop{
		Address:    addr,
		Iface:      firstEdge.IfaceFromNode(myNode),
		Metric:     path.TotalMetric(myNode),
		MplsAction: action,
		Area:       firstEdge.Area,
		AreaSet:    true,
	}, true
}


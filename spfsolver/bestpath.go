package spfsolver

import (
	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/routetypes"
)

// BestPathResult is BestPathResult from spec.md §4.3.1.
type BestPathResult struct {
	success       bool
	nodes         map[NodeName]struct{}
	bestNode      NodeName
	bestVector    *routetypes.MetricVector
	bestIgpMetric routetypes.Metric
	hasIgpMetric  bool
}

// getBestAnnouncingNodes implements spec.md §4.3.1.
func (s *Solver) getBestAnnouncingNodes(myNode NodeName, advertisers map[NodeName]routetypes.PrefixEntry, hasBgp, useKsp2 bool, ls *linkstate.LinkState, ps *prefixstate.PrefixState) BestPathResult {
	if useKsp2 {
		for _, e := range advertisers {
			if e.ForwardingType != routetypes.ForwardingTypeSRMPLS {
				metrics.IncompatibleForwardingType.Add(1)
				return BestPathResult{success: false}
			}
		}
	}

	if !hasBgp {
		nodes := make(map[NodeName]struct{}, len(advertisers))
		for n := range advertisers {
			nodes[n] = struct{}{}
		}
		if _, self := nodes[myNode]; self {
			return BestPathResult{success: true, nodes: map[NodeName]struct{}{}}
		}
		s.maybeFilterDrainedNodes(nodes, ls)
		return BestPathResult{success: true, nodes: nodes}
	}

	return s.runBestPathSelectionBgp(myNode, advertisers, ls)
}

// maybeFilterDrainedNodes removes overloaded advertisers from the
// candidate set in place.
func (s *Solver) maybeFilterDrainedNodes(nodes map[NodeName]struct{}, ls *linkstate.LinkState) {
	for n := range nodes {
		if ls.IsNodeOverloaded(n) {
			delete(nodes, n)
		}
	}
}

// runBestPathSelectionBgp implements spec.md §4.3.1's BGP walk.
func (s *Solver) runBestPathSelectionBgp(myNode NodeName, advertisers map[NodeName]routetypes.PrefixEntry, ls *linkstate.LinkState) BestPathResult {
	spf := ls.GetSpfResult(myNode)

	type candidate struct {
		node   NodeName
		vector routetypes.MetricVector
		igp    routetypes.Metric
	}
	var candidates []candidate
	var bestIgp routetypes.Metric
	haveBestIgp := false

	for node, entry := range advertisers {
		sp, reachable := spf[node]
		if !reachable && node != myNode {
			continue
		}
		var igpDist routetypes.Metric
		if node == myNode {
			igpDist = 0
		} else {
			igpDist = sp.Metric()
		}

		vec := *entry.MetricVector
		if _, dup := routetypes.GetMetricEntityByType(vec, routetypes.MetricEntityOpenrIGPCost); dup {
			metrics.Errors.Add(1)
			continue // OPENR_IGP_COST must never already be present
		}

		if s.cfg.BgpUseIgpMetric {
			vec = withIgpCost(vec, igpDist)
			if !haveBestIgp || igpDist < bestIgp {
				bestIgp = igpDist
				haveBestIgp = true
			}
		}
		candidates = append(candidates, candidate{node: node, vector: vec, igp: igpDist})
	}

	if len(candidates) == 0 {
		return BestPathResult{success: true, nodes: map[NodeName]struct{}{}}
	}

	// compareMetricVectors(candidate, currentBest): the candidate is
	// always the left-hand side, matching
	// SpfSolverImpl::runBestPathSelectionBgp's call convention.
	result := BestPathResult{nodes: make(map[NodeName]struct{})}
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		cmp := routetypes.CompareWinner
		if best != nil {
			cmp = routetypes.CompareMetricVectors(c.vector, best.vector)
		}
		switch cmp {
		case routetypes.CompareWinner:
			result.nodes = map[NodeName]struct{}{}
			best = c
			result.nodes[c.node] = struct{}{}
		case routetypes.CompareTieWinner:
			best = c
			result.nodes[c.node] = struct{}{}
		case routetypes.CompareTieLooser:
			result.nodes[c.node] = struct{}{}
		case routetypes.CompareTie, routetypes.CompareError:
			return BestPathResult{success: false}
		default: // CompareLooser: candidate outright loses, drop it
		}
	}

	result.success = true
	result.bestNode = best.node
	result.bestVector = &best.vector
	result.bestIgpMetric = best.igp
	result.hasIgpMetric = s.cfg.BgpUseIgpMetric
	return result
}

func withIgpCost(vec routetypes.MetricVector, igpDist routetypes.Metric) routetypes.MetricVector {
	out := routetypes.MetricVector{Metrics: append([]routetypes.MetricEntity{}, vec.Metrics...)}
	out.Metrics = append(out.Metrics, routetypes.CreateMetricEntity(
		routetypes.MetricEntityOpenrIGPCost,
		0, // lowest priority: only a tiebreaker among otherwise-equal vectors
		routetypes.CompareTypeWinIfNotPresent,
		false,
		[]int64{-int64(igpDist)},
	))
	return out
}

package spfsolver

import "github.com/encodeous/routingd/linkstate"

func nextHopSet(n linkstate.SpfNode) map[NodeName]struct{} {
	out := make(map[NodeName]struct{})
	for _, nh := range n.NextHops() {
		out[nh] = struct{}{}
	}
	return out
}

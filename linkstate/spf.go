package linkstate

import (
	"container/heap"
	"time"

	"github.com/encodeous/routingd/metrics"
)

// GetSpfResult returns the memoized single-source shortest-path result
// from src, skipping overloaded transit nodes (spec.md §4.2: an
// overloaded node is never used as a transit hop, but its own
// directly-advertised prefixes remain reachable since src itself is
// never "transited"). The result is cached until the next topology or
// metric change invalidates it.
func (ls *LinkState) GetSpfResult(src NodeName) SpfResult {
	if cached, ok := ls.spfCache[src]; ok {
		return cached
	}
	start := time.Now()
	res := ls.runSpf(src)
	metrics.RecordSpf(float64(time.Since(start).Microseconds()) / 1000)
	ls.spfCache[src] = res
	return res
}

type spfHeapItem struct {
	node   NodeName
	metric Metric
}

type spfHeap []spfHeapItem

func (h spfHeap) Len() int            { return len(h) }
func (h spfHeap) Less(i, j int) bool  { return h[i].metric < h[j].metric }
func (h spfHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *spfHeap) Push(x any)         { *h = append(*h, x.(spfHeapItem)) }
func (h *spfHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// runSpf is a Dijkstra variant that, rather than keeping a single
// predecessor, accumulates every first hop that lies on some
// equal-cost shortest path to each destination (the "ECMP" set the
// original's runSpf builds via nextHopsWithMetric_ tracking ties at
// the same distance), plus every tied predecessor edge, which
// GetKthPaths later walks to enumerate whole paths.
func (ls *LinkState) runSpf(src NodeName) SpfResult {
	ls.parentScratch = &parentEdgeCache{edges: make(map[NodeName][]*Edge)}
	dist := make(map[NodeName]Metric)
	nextHops := make(map[NodeName]map[NodeName]struct{})
	dist[src] = 0

	h := &spfHeap{{node: src, metric: 0}}
	visited := make(map[NodeName]bool)

	for h.Len() > 0 {
		top := heap.Pop(h).(spfHeapItem)
		u := top.node
		if visited[u] {
			continue
		}
		if top.metric > dist[u] {
			continue
		}
		visited[u] = true

		if ls.IsNodeOverloaded(u) && u != src {
			continue
		}

		for _, e := range ls.LinksFromNode(u) {
			v := e.OtherNode(u)
			w := e.MetricFromNode(u)
			cand := dist[u] + w

			d, known := dist[v]
			switch {
			case !known || cand < d:
				dist[v] = cand
				ls.setParentEdges(v, []*Edge{e})
				if u == src {
					nextHops[v] = map[NodeName]struct{}{v: {}}
				} else {
					nextHops[v] = cloneSet(nextHops[u])
				}
				heap.Push(h, spfHeapItem{node: v, metric: cand})
			case cand == d:
				ls.addParentEdge(v, e)
				if nextHops[v] == nil {
					nextHops[v] = make(map[NodeName]struct{})
				}
				var source map[NodeName]struct{}
				if u == src {
					source = map[NodeName]struct{}{v: {}}
				} else {
					source = nextHops[u]
				}
				for nh := range source {
					nextHops[v][nh] = struct{}{}
				}
			}
		}
	}

	out := make(SpfResult, len(dist))
	for node, d := range dist {
		nh := nextHops[node]
		if node == src {
			nh = map[NodeName]struct{}{}
		}
		out[node] = SpfNode{metric: d, nextHops: nh}
	}
	return out
}

// parentEdgeCache holds, for the SPF tree currently being built, every
// tied predecessor edge of each node. It is scratch state valid only
// for the duration of a single runSpf call; GetKthPaths rebuilds it by
// rerunning SPF when needed rather than trusting a stale copy.
type parentEdgeCache struct {
	edges map[NodeName][]*Edge
}

func (ls *LinkState) setParentEdges(v NodeName, edges []*Edge) {
	ls.ensureParentScratch()
	ls.parentScratch.edges[v] = append([]*Edge{}, edges...)
}

func (ls *LinkState) addParentEdge(v NodeName, e *Edge) {
	ls.ensureParentScratch()
	ls.parentScratch.edges[v] = append(ls.parentScratch.edges[v], e)
}

func (ls *LinkState) ensureParentScratch() {
	if ls.parentScratch == nil {
		ls.parentScratch = &parentEdgeCache{edges: make(map[NodeName][]*Edge)}
	}
}

func cloneSet(s map[NodeName]struct{}) map[NodeName]struct{} {
	out := make(map[NodeName]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// GetHopsFromAToB returns the hop count of the shortest path from a to
// b, or false if unreachable.
func (ls *LinkState) GetHopsFromAToB(a, b NodeName) (int, bool) {
	paths := ls.GetKthPaths(a, b, 1)
	if len(paths) == 0 {
		return 0, false
	}
	return len(paths[0]), true
}

// GetMaxHopsToNode returns the greatest shortest-path hop count from
// any other known node to dst, used to size ordered-fib hold-down TTLs.
func (ls *LinkState) GetMaxHopsToNode(dst NodeName) int {
	max := 0
	for src := range ls.adjDbs {
		if src == dst {
			continue
		}
		if hops, ok := ls.GetHopsFromAToB(src, dst); ok && hops > max {
			max = hops
		}
	}
	return max
}

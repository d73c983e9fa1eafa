package linkstate

import (
	"container/heap"
	"time"

	"github.com/encodeous/routingd/metrics"
)

// maxEnumeratedPaths bounds the ECMP path enumeration below, so a
// densely tied graph can't make GetKthPaths(1, ...) blow up.
const maxEnumeratedPaths = 64

// GetKthPaths implements spec.md §4.1's shortest/second-shortest path
// query: k=1 returns every equal-cost shortest path from src to dst
// (the ECMP set); k=2 additionally returns one loop-free alternate path
// whose metric is the smallest achievable by avoiding every edge of the
// k=1 paths, for use by KSP2 best-path selection. Any other k is
// rejected with a nil result.
func (ls *LinkState) GetKthPaths(src, dst NodeName, k int) []Path {
	if k != 1 && k != 2 {
		return nil
	}
	if src == dst {
		return []Path{{}}
	}

	start := time.Now()
	defer func() { metrics.PathBuildMs.Add(float64(time.Since(start).Microseconds()) / 1000) }()

	ls.runSpf(src) // rebuild parentScratch for this source
	shortest := ls.enumeratePaths(src, dst)
	if k == 1 {
		return shortest
	}

	excluded := make(map[string]bool)
	for _, p := range shortest {
		for _, e := range p {
			excluded[edgeKey(e.A, e.B)] = true
		}
	}
	alt := ls.secondShortestPath(src, dst, excluded)
	if alt == nil {
		return shortest
	}

	altNodes := alt.Nodes(src)
	for _, p := range shortest {
		if PathAInPathB(altNodes, p.Nodes(src)) {
			return shortest
		}
	}
	return append(append([]Path{}, shortest...), *alt)
}

// enumeratePaths walks the tied-predecessor-edge tree built by the most
// recent runSpf(src) backward from dst, producing every shortest path
// as a forward edge sequence.
func (ls *LinkState) enumeratePaths(src, dst NodeName) []Path {
	if ls.parentScratch == nil {
		return nil
	}
	var out []Path
	var walk func(node NodeName, acc Path)
	walk = func(node NodeName, acc Path) {
		if len(out) >= maxEnumeratedPaths {
			return
		}
		if node == src {
			rev := make(Path, len(acc))
			for i, e := range acc {
				rev[len(acc)-1-i] = e
			}
			out = append(out, rev)
			return
		}
		for _, e := range ls.parentScratch.edges[node] {
			walk(e.OtherNode(node), append(acc, e))
		}
	}
	walk(dst, nil)
	return out
}

// secondShortestPath finds the minimum-metric src->dst path that uses
// none of the excluded edges, using a direct Dijkstra over the reduced
// graph. This is the single-alternate special case of Yen's algorithm
// that spec.md's KSP2 (k<=2) needs, not the general k-shortest-paths
// algorithm.
func (ls *LinkState) secondShortestPath(src, dst NodeName, excludedEdges map[string]bool) *Path {
	dist := map[NodeName]Metric{src: 0}
	parent := map[NodeName]*Edge{}
	h := &spfHeap{{node: src, metric: 0}}
	visited := map[NodeName]bool{}

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
			if excludedEdges[edgeKey(e.A, e.B)] {
				continue
			}
			v := e.OtherNode(u)
			cand := dist[u] + e.MetricFromNode(u)
			if d, known := dist[v]; !known || cand < d {
				dist[v] = cand
				parent[v] = e
				heap.Push(h, spfHeapItem{node: v, metric: cand})
			}
		}
	}

	if _, ok := dist[dst]; !ok {
		return nil
	}
	var path Path
	cur := dst
	for cur != src {
		e := parent[cur]
		if e == nil {
			return nil
		}
		path = append(Path{e}, path...)
		cur = e.OtherNode(cur)
	}
	return &path
}

// PathAInPathB reports whether a's node sequence appears as a
// contiguous subsequence of b's, the test the caller uses to discard a
// KSP2 alternate that duplicates an ECMP path already selected.
func PathAInPathB(a, b []NodeName) bool {
	if len(a) > len(b) {
		return false
	}
	for start := 0; start+len(a) <= len(b); start++ {
		match := true
		for i := range a {
			if b[start+i] != a[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

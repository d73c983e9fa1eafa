package linkstate

import (
	"testing"

	"github.com/encodeous/routingd/routetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjDb(node routetypes.NodeName, adjs ...routetypes.Adjacency) routetypes.AdjacencyDatabase {
	return routetypes.AdjacencyDatabase{ThisNode: node, Adjacencies: adjs}
}

func adj(owner, neighbor routetypes.NodeName, metric routetypes.Metric) routetypes.Adjacency {
	return routetypes.Adjacency{OwnerNode: owner, NeighborNode: neighbor, Metric: metric, Up: true}
}

// triangle builds A-B-C-A, each link weight 1, used by several tests.
func triangle() *LinkState {
	ls := New(routetypes.DefaultArea, false)
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1), adj("a", "c", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("b", adj("b", "a", 1), adj("b", "c", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("c", adj("c", "a", 1), adj("c", "b", 1)), 0, 0)
	return ls
}

func TestAsymmetricAdjacencyNotUsable(t *testing.T) {
	ls := New(routetypes.DefaultArea, false)
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1)), 0, 0)
	assert.Empty(t, ls.LinksFromNode("a"))

	ls.UpdateAdjacencyDatabase(adjDb("b", adj("b", "a", 1)), 0, 0)
	assert.Len(t, ls.LinksFromNode("a"), 1)
}

func TestSpfShortestPathAndEcmp(t *testing.T) {
	ls := triangle()
	res := ls.GetSpfResult("a")
	require.Contains(t, res, routetypes.NodeName("b"))
	assert.EqualValues(t, 1, res["b"].Metric())
	assert.EqualValues(t, 1, res["c"].Metric())
}

func TestSpfEcmpNextHops(t *testing.T) {
	ls := New(routetypes.DefaultArea, false)
	// a - b - d, a - c - d, both cost 2; ECMP through b and c.
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1), adj("a", "c", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("b", adj("b", "a", 1), adj("b", "d", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("c", adj("c", "a", 1), adj("c", "d", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("d", adj("d", "b", 1), adj("d", "c", 1)), 0, 0)

	res := ls.GetSpfResult("a")
	d := res["d"]
	assert.EqualValues(t, 2, d.Metric())
	assert.ElementsMatch(t, []routetypes.NodeName{"b", "c"}, d.NextHops())
}

func TestOverloadedNodeSkippedAsTransit(t *testing.T) {
	ls := New(routetypes.DefaultArea, false)
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1)), 0, 0)
	b := adjDb("b", adj("b", "a", 1), adj("b", "c", 1))
	b.Overloaded = true
	ls.UpdateAdjacencyDatabase(b, 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("c", adj("c", "b", 1)), 0, 0)

	res := ls.GetSpfResult("a")
	_, reachable := res["c"]
	assert.False(t, reachable, "c should be unreachable once transit node b is overloaded")

	// b's own prefixes remain directly reachable.
	_, bReachable := res["b"]
	assert.True(t, bReachable)
}

func TestGetKthPathsKsp2FindsLoopFreeAlternate(t *testing.T) {
	ls := New(routetypes.DefaultArea, false)
	// a-b-d cost 2 (shortest), a-c-d cost 3 (alternate).
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1), adj("a", "c", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("b", adj("b", "a", 1), adj("b", "d", 1)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("c", adj("c", "a", 1), adj("c", "d", 2)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("d", adj("d", "b", 1), adj("d", "c", 2)), 0, 0)

	paths := ls.GetKthPaths("a", "d", 2)
	require.Len(t, paths, 2)
	assert.EqualValues(t, 2, paths[0].TotalMetric("a"))
	assert.EqualValues(t, 3, paths[1].TotalMetric("a"))
}

func TestHoldTimersGateLinkUsability(t *testing.T) {
	ls := New(routetypes.DefaultArea, true)
	ls.UpdateAdjacencyDatabase(adjDb("a", adj("a", "b", 1)), 2, 2)
	ls.UpdateAdjacencyDatabase(adjDb("b", adj("b", "a", 1)), 2, 2)

	// newly-usable edge starts held down.
	assert.Empty(t, ls.LinksFromNode("a"))

	ls.DecrementHolds()
	assert.Empty(t, ls.LinksFromNode("a"))
	ls.DecrementHolds()
	assert.Len(t, ls.LinksFromNode("a"), 1)
}

func TestGetHopsFromAToB(t *testing.T) {
	ls := triangle()
	hops, ok := ls.GetHopsFromAToB("a", "b")
	require.True(t, ok)
	assert.Equal(t, 1, hops)

	_, ok = ls.GetHopsFromAToB("a", "nonexistent")
	assert.False(t, ok)
}

func TestDeleteAdjacencyDatabaseRemovesEdges(t *testing.T) {
	ls := triangle()
	require.NotEmpty(t, ls.LinksFromNode("a"))
	ls.DeleteAdjacencyDatabase("a")
	assert.Empty(t, ls.LinksFromNode("a"))
	assert.False(t, ls.HasNode("a"))
}

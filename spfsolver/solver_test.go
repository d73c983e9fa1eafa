package spfsolver

import (
	"net/netip"
	"testing"

	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/routetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefix(cidr string) netip.Prefix {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		panic(err)
	}
	return p
}

func adjDb(node routetypes.NodeName, nodeLabel int32, adjs ...routetypes.Adjacency) routetypes.AdjacencyDatabase {
	return routetypes.AdjacencyDatabase{ThisNode: node, NodeLabel: nodeLabel, Adjacencies: adjs}
}

func adj(owner, neighbor routetypes.NodeName, metric routetypes.Metric, adjLabel int32) routetypes.Adjacency {
	return routetypes.Adjacency{OwnerNode: owner, NeighborNode: neighbor, Metric: metric, AdjacencyLabel: adjLabel, Up: true}
}

// lineTopology builds a-b-c, each hop cost 1, node a is myNode.
func lineTopology(t *testing.T) *linkstate.LinkState {
	ls := linkstate.New(routetypes.DefaultArea, false)
	ls.UpdateAdjacencyDatabase(adjDb("a", 16, adj("a", "b", 1, 101)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("b", 17, adj("b", "a", 1, 102), adj("b", "c", 1, 103)), 0, 0)
	ls.UpdateAdjacencyDatabase(adjDb("c", 18, adj("c", "b", 1, 104)), 0, 0)
	return ls
}

func TestBuildRouteDbOpenrEcmp(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()
	ps.UpdateFullPrefixDatabase("c", map[netip.Prefix]routetypes.PrefixEntry{
		prefix("10.0.0.0/24"): {Prefix: prefix("10.0.0.0/24"), Type: routetypes.PrefixTypeOpenR},
	})

	s := New(Config{EnableV4: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)
	require.Contains(t, rdb.Unicast, prefix("10.0.0.0/24"))

	entry := rdb.Unicast[prefix("10.0.0.0/24")]
	require.Len(t, entry.NextHops, 1)
	assert.EqualValues(t, 2, entry.NextHops[0].Metric)
}

func TestBuildRouteDbSkipsSelfAdvertisedPrefix(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()
	ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{
		prefix("10.0.0.0/24"): {Prefix: prefix("10.0.0.0/24"), Type: routetypes.PrefixTypeOpenR},
	})

	s := New(Config{EnableV4: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)
	assert.NotContains(t, rdb.Unicast, prefix("10.0.0.0/24"))
}

func TestBuildRouteDbV4SkippedWhenDisabled(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()
	ps.UpdateFullPrefixDatabase("c", map[netip.Prefix]routetypes.PrefixEntry{
		prefix("10.0.0.0/24"): {Prefix: prefix("10.0.0.0/24"), Type: routetypes.PrefixTypeOpenR},
	})

	s := New(Config{EnableV4: false})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)
	assert.NotContains(t, rdb.Unicast, prefix("10.0.0.0/24"))
}

func TestBuildRouteDbNodeLabelSwapAndPhp(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()

	s := New(Config{EnableV4: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)

	// a's own node label pops and looks up locally.
	require.Contains(t, rdb.Mpls, int32(16))
	assert.Equal(t, routetypes.MplsActionPopAndLookup, rdb.Mpls[16].NextHops[0].MplsAction.Code)

	// b is directly adjacent: PHP, metric is the single edge cost.
	require.Contains(t, rdb.Mpls, int32(17))
	assert.Equal(t, routetypes.MplsActionPHP, rdb.Mpls[17].NextHops[0].MplsAction.Code)
	assert.EqualValues(t, 1, rdb.Mpls[17].NextHops[0].Metric)

	// c is two hops away: SWAP via b, metric is the full a->b->c distance,
	// not just the a->b edge.
	require.Contains(t, rdb.Mpls, int32(18))
	assert.Equal(t, routetypes.MplsActionSwap, rdb.Mpls[18].NextHops[0].MplsAction.Code)
	assert.EqualValues(t, 18, rdb.Mpls[18].NextHops[0].MplsAction.Label)
	assert.EqualValues(t, 2, rdb.Mpls[18].NextHops[0].Metric)
}

func TestBuildRouteDbAdjacencyLabelRoutes(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()

	s := New(Config{EnableV4: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)

	require.Contains(t, rdb.Mpls, int32(101))
	assert.Equal(t, routetypes.MplsActionPHP, rdb.Mpls[101].NextHops[0].MplsAction.Code)
}

func TestProcessStaticRouteUpdatesSquashesPending(t *testing.T) {
	s := New(Config{})
	s.PushRoutesDeltaUpdates(StaticDelta{Update: []routetypes.RibMplsEntry{{Label: 500}}})
	s.PushRoutesDeltaUpdates(StaticDelta{Delete: []int32{500}})

	delta := s.ProcessStaticRouteUpdates()
	assert.Empty(t, delta.Update)
	assert.Empty(t, delta.Delete)
	assert.Empty(t, s.GetStaticRoutes())
}

func TestProcessStaticRouteUpdatesAppliesAndReturnsDelta(t *testing.T) {
	s := New(Config{})
	s.PushRoutesDeltaUpdates(StaticDelta{Update: []routetypes.RibMplsEntry{{Label: 500}}})

	delta := s.ProcessStaticRouteUpdates()
	assert.Len(t, delta.Update, 1)
	assert.Contains(t, s.GetStaticRoutes(), int32(500))
}

func TestBuildRouteDbBgpMetricVectorSelection(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()
	ps.UpdatePrefixEntry("b", routetypes.PrefixEntry{Prefix: prefix("10.255.0.2/32"), Type: routetypes.PrefixTypeLoopback})
	ps.UpdatePrefixEntry("c", routetypes.PrefixEntry{Prefix: prefix("10.255.0.3/32"), Type: routetypes.PrefixTypeLoopback})

	// Higher raw value wins a same-priority entity, so b's {2} beats c's
	// {1} at equal priority.
	winner := routetypes.MetricVector{Metrics: []routetypes.MetricEntity{
		routetypes.CreateMetricEntity(1, 10, routetypes.CompareTypeWinIfPresent, false, []int64{2}),
	}}
	loser := routetypes.MetricVector{Metrics: []routetypes.MetricEntity{
		routetypes.CreateMetricEntity(1, 10, routetypes.CompareTypeWinIfPresent, false, []int64{1}),
	}}

	bgpPrefix := prefix("192.0.2.0/24")
	ps.UpdatePrefixEntry("b", routetypes.PrefixEntry{Prefix: bgpPrefix, Type: routetypes.PrefixTypeBGP, MetricVector: &winner})
	ps.UpdatePrefixEntry("c", routetypes.PrefixEntry{Prefix: bgpPrefix, Type: routetypes.PrefixTypeBGP, MetricVector: &loser})

	s := New(Config{EnableV4: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)

	require.Contains(t, rdb.Unicast, bgpPrefix)
	entry := rdb.Unicast[bgpPrefix]
	require.NotNil(t, entry.BestPrefixEntry)
	assert.Equal(t, routetypes.PrefixTypeBGP, entry.BestPrefixEntry.Type)
	assert.Same(t, &winner, entry.BestPrefixEntry.MetricVector)
}

func TestBuildRouteDbBgpIgpTiebreakPrefersLowerIgpDistance(t *testing.T) {
	ls := lineTopology(t)
	ps := prefixstate.New()
	ps.UpdatePrefixEntry("b", routetypes.PrefixEntry{Prefix: prefix("10.255.0.2/32"), Type: routetypes.PrefixTypeLoopback})
	ps.UpdatePrefixEntry("c", routetypes.PrefixEntry{Prefix: prefix("10.255.0.3/32"), Type: routetypes.PrefixTypeLoopback})

	// b and c advertise the prefix with identical base metric vectors, so
	// the outcome is decided purely by the OPENR_IGP_COST tiebreak that
	// BgpUseIgpMetric attaches: b is 1 hop away (igp=1), c is 2 hops away
	// (igp=2) via lineTopology's a-b-c chain, so b must win.
	tied := routetypes.MetricVector{Metrics: []routetypes.MetricEntity{
		routetypes.CreateMetricEntity(1, 10, routetypes.CompareTypeWinIfPresent, false, []int64{5}),
	}}
	tiedCopy := tied

	bgpPrefix := prefix("192.0.2.0/24")
	ps.UpdatePrefixEntry("b", routetypes.PrefixEntry{Prefix: bgpPrefix, Type: routetypes.PrefixTypeBGP, MetricVector: &tied})
	ps.UpdatePrefixEntry("c", routetypes.PrefixEntry{Prefix: bgpPrefix, Type: routetypes.PrefixTypeBGP, MetricVector: &tiedCopy})

	s := New(Config{EnableV4: true, BgpUseIgpMetric: true})
	rdb, err := s.BuildRouteDb("a", ls, ps)
	require.NoError(t, err)

	require.Contains(t, rdb.Unicast, bgpPrefix)
	entry := rdb.Unicast[bgpPrefix]
	require.NotNil(t, entry.BestPrefixEntry)
	assert.Same(t, &tied, entry.BestPrefixEntry.MetricVector)
}

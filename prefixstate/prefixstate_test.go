package prefixstate

import (
	"net/netip"
	"testing"

	"github.com/encodeous/routingd/routetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFullPrefixDatabaseTracksAdvertisers(t *testing.T) {
	ps := New()
	p := netip.MustParsePrefix("10.0.0.0/24")
	changed := ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{
		p: {Prefix: p, Type: routetypes.PrefixTypeOpenR},
	})
	assert.True(t, changed)

	advertisers := ps.Advertisers(p)
	require.Contains(t, advertisers, routetypes.NodeName("a"))
}

func TestPerPrefixDeltaShadowsFullDb(t *testing.T) {
	ps := New()
	p := netip.MustParsePrefix("10.0.0.0/24")
	ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{
		p: {Prefix: p, Type: routetypes.PrefixTypeOpenR},
	})

	overlay := routetypes.PrefixEntry{Prefix: p, Type: routetypes.PrefixTypeBGP}
	changed := ps.UpdatePrefixEntry("a", overlay)
	assert.True(t, changed)

	advertisers := ps.Advertisers(p)
	assert.Equal(t, routetypes.PrefixTypeBGP, advertisers["a"].Type)

	// Deleting the overlay falls back to the full-db entry.
	ps.DeletePrefixEntry("a", p)
	advertisers = ps.Advertisers(p)
	assert.Equal(t, routetypes.PrefixTypeOpenR, advertisers["a"].Type)
}

func TestDeleteNodeRemovesEveryAdvertisement(t *testing.T) {
	ps := New()
	p1 := netip.MustParsePrefix("10.0.0.0/24")
	p2 := netip.MustParsePrefix("10.0.1.0/24")
	ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{
		p1: {Prefix: p1},
		p2: {Prefix: p2},
	})

	changed := ps.DeleteNode("a")
	assert.True(t, changed)
	assert.Empty(t, ps.Advertisers(p1))
	assert.Empty(t, ps.Advertisers(p2))
}

func TestLoopbackTrackingAndVias(t *testing.T) {
	ps := New()
	v4 := netip.MustParsePrefix("10.1.1.1/32")
	v6 := netip.MustParsePrefix("fd00::1/128")
	ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{
		v4: {Prefix: v4, Type: routetypes.PrefixTypeLoopback},
		v6: {Prefix: v6, Type: routetypes.PrefixTypeLoopback},
	})

	vias4 := ps.GetLoopbackVias([]routetypes.NodeName{"a"}, true)
	require.Contains(t, vias4, routetypes.NodeName("a"))
	assert.Equal(t, v4.Addr(), vias4["a"])

	vias6 := ps.GetLoopbackVias([]routetypes.NodeName{"a"}, false)
	assert.Equal(t, v6.Addr(), vias6["a"])

	assert.Equal(t, 1, ps.NumNodesWithLoopback(true))
	assert.Equal(t, 1, ps.NumNodesWithLoopback(false))

	ps.DeleteLoopbackPrefix("a", true)
	assert.Equal(t, 0, ps.NumNodesWithLoopback(true))
}

func TestPrefixesListsEveryAdvertisedPrefix(t *testing.T) {
	ps := New()
	p1 := netip.MustParsePrefix("10.0.0.0/24")
	p2 := netip.MustParsePrefix("10.0.1.0/24")
	ps.UpdateFullPrefixDatabase("a", map[netip.Prefix]routetypes.PrefixEntry{p1: {Prefix: p1}})
	ps.UpdateFullPrefixDatabase("b", map[netip.Prefix]routetypes.PrefixEntry{p2: {Prefix: p2}})

	assert.ElementsMatch(t, []netip.Prefix{p1, p2}, ps.Prefixes())
}

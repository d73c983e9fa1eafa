package ribpolicy

import (
	"net/netip"
	"testing"
	"time"

	"github.com/encodeous/routingd/routetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDropsZeroWeightNextHops(t *testing.T) {
	tr := New(nil)
	defer tr.Stop()

	p := netip.MustParsePrefix("10.0.0.0/24")
	tr.Set(&Policy{
		TtlSecs: 60,
		Statements: []Statement{
			{
				Matcher: Matcher{Prefixes: []string{p.String()}},
				Action: ActionWeight{
					DefaultWeight: 1,
					AreaWeight:    map[routetypes.Area]int32{"drained": 0},
				},
			},
		},
	})

	entry := &routetypes.RibUnicastEntry{
		Prefix: p,
		NextHops: []routetypes.NextHop{
			{Iface: "eth0", Area: "drained", AreaSet: true},
			{Iface: "eth1"},
		},
	}

	changed := tr.Apply(entry)
	assert.True(t, changed)
	require.Len(t, entry.NextHops, 1)
	assert.Equal(t, "eth1", entry.NextHops[0].Iface)
}

func TestApplyNoOpWhenNoPolicyInstalled(t *testing.T) {
	tr := New(nil)
	defer tr.Stop()

	entry := &routetypes.RibUnicastEntry{
		Prefix:   netip.MustParsePrefix("10.0.0.0/24"),
		NextHops: []routetypes.NextHop{{Iface: "eth0"}},
	}
	changed := tr.Apply(entry)
	assert.False(t, changed)
	assert.Len(t, entry.NextHops, 1)
}

func TestApplyUnmatchedPrefixUnaffected(t *testing.T) {
	tr := New(nil)
	defer tr.Stop()

	tr.Set(&Policy{
		TtlSecs: 60,
		Statements: []Statement{
			{
				Matcher: Matcher{Prefixes: []string{"192.0.2.0/24"}},
				Action:  ActionWeight{DefaultWeight: 0},
			},
		},
	})

	entry := &routetypes.RibUnicastEntry{
		Prefix:   netip.MustParsePrefix("10.0.0.0/24"),
		NextHops: []routetypes.NextHop{{Iface: "eth0"}},
	}
	changed := tr.Apply(entry)
	assert.False(t, changed)
	assert.Len(t, entry.NextHops, 1)
}

func TestExpiryCallsOnExpire(t *testing.T) {
	done := make(chan struct{})
	tr := New(func() { close(done) })
	defer tr.Stop()

	tr.cache.Set(cacheKey, &Policy{TtlSecs: 0}, 50*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onExpire was not called after policy TTL lapsed")
	}
	assert.False(t, tr.IsActive())
}

func TestIsActiveAndGet(t *testing.T) {
	tr := New(nil)
	defer tr.Stop()

	assert.False(t, tr.IsActive())
	assert.Nil(t, tr.Get())

	policy := &Policy{TtlSecs: 60}
	tr.Set(policy)
	assert.True(t, tr.IsActive())
	assert.Same(t, policy, tr.Get())

	tr.Clear()
	assert.False(t, tr.IsActive())
}

// Package ribpolicy implements the TTL-bounded RIB-policy transformer
// of spec.md §4.4: an operator-installed set of statements that assign
// a unicast route's next-hops a per-area weight and drop those weighted
// zero or less, expiring automatically after its configured lifetime.
// Next-hops carry no weight field, so a positive weight leaves a
// next-hop unchanged. It is grounded on
// original_source/examples/SetRibPolicyExample.cpp for the wire shape
// and on the teacher's ttlcache usage (core/router.go's SeqnoDedup) for
// the expiry mechanism: rather than hand-rolling a deadline comparison,
// the active policy lives as the sole entry of a
// ttlcache.Cache[string, *Policy] and is "absent" exactly when the
// cache says so.
package ribpolicy

import (
	"context"
	"time"

	"github.com/encodeous/routingd/routetypes"
	"github.com/jellydator/ttlcache/v3"
)

// Matcher selects which prefixes a statement applies to. An empty
// Prefixes list matches every prefix, mirroring
// thrift::RibPolicyStatement's matcher semantics.
type Matcher struct {
	Prefixes []string // CIDR strings, as accepted by the set-rib-policy CLI
}

// ActionWeight is RibRouteActionWeight: a default next-hop weight plus
// per-area overrides.
type ActionWeight struct {
	DefaultWeight int32
	AreaWeight    map[routetypes.Area]int32
}

// Statement is one RibPolicyStatement: a matcher plus the action-weight
// to apply to next-hops of matching routes.
type Statement struct {
	Matcher Matcher
	Action  ActionWeight
}

// Policy is the full installable RIB policy: an ordered list of
// statements plus its lifetime.
type Policy struct {
	Statements []Statement
	TtlSecs    int32
}

const cacheKey = "active"

// Transformer owns the single active policy and its expiry.
type Transformer struct {
	cache *ttlcache.Cache[string, *Policy]
}

// New builds a Transformer. onExpire, if non-nil, is invoked (from the
// cache's own background goroutine) when the active policy's TTL
// lapses, so the orchestrator can trigger the recompute spec.md §9's
// RibPolicy-expiry item calls for without polling IsActive.
func New(onExpire func()) *Transformer {
	c := ttlcache.New[string, *Policy](
		ttlcache.WithDisableTouchOnHit[string, *Policy](),
	)
	if onExpire != nil {
		c.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, _ *ttlcache.Item[string, *Policy]) {
			if reason == ttlcache.EvictionReasonExpired {
				onExpire()
			}
		})
	}
	go c.Start()
	return &Transformer{cache: c}
}

// Set installs policy, replacing whatever was active, with a fresh TTL.
func (t *Transformer) Set(policy *Policy) {
	t.cache.Set(cacheKey, policy, time.Duration(policy.TtlSecs)*time.Second)
}

// Clear removes the active policy immediately, without waiting for its
// TTL to lapse.
func (t *Transformer) Clear() {
	t.cache.Delete(cacheKey)
}

// Stop halts the cache's background eviction goroutine started by New.
// Callers must invoke this on shutdown to avoid leaking it.
func (t *Transformer) Stop() {
	t.cache.Stop()
}

// IsActive reports whether a non-expired policy is installed.
func (t *Transformer) IsActive() bool {
	item := t.cache.Get(cacheKey)
	return item != nil
}

// Get returns the active policy, or nil if none is installed or it has
// expired.
func (t *Transformer) Get() *Policy {
	item := t.cache.Get(cacheKey)
	if item == nil {
		return nil
	}
	return item.Value()
}

// Apply rewrites entry's next-hop set in place per the active policy's
// statements, in order, dropping any next-hop a statement weights to
// zero or less, and reports whether entry was changed. Next-hops with a
// positive weight are kept as they are; the weight is not recorded. Applying an
// expired (or absent) policy is a no-op: callers must consult IsActive
// before invoking Apply from the RIB-rebuild path, the same way
// Decision checks rib_policy_ before calling
// SpfSolver::updateRoutesWithPolicy. The caller is responsible for
// dropping the whole entry if Apply empties its next-hop set.
func (t *Transformer) Apply(entry *routetypes.RibUnicastEntry) bool {
	policy := t.Get()
	if policy == nil {
		return false
	}
	changed := false
	for _, stmt := range policy.Statements {
		if !stmt.Matcher.matches(entry.Prefix.String()) {
			continue
		}
		kept := entry.NextHops[:0]
		for _, nh := range entry.NextHops {
			weight := stmt.Action.DefaultWeight
			if nh.AreaSet {
				if w, ok := stmt.Action.AreaWeight[nh.Area]; ok {
					weight = w
				}
			}
			if weight <= 0 {
				changed = true
				continue
			}
			kept = append(kept, nh)
		}
		entry.NextHops = kept
	}
	return changed
}

func (m Matcher) matches(prefix string) bool {
	if len(m.Prefixes) == 0 {
		return true
	}
	for _, p := range m.Prefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

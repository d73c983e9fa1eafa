package decision

import (
	"net/netip"

	"github.com/encodeous/routingd/ribpolicy"
	"github.com/encodeous/routingd/routetypes"
)

// GetRouteDb returns the last published RouteDb (spec.md §4.7's
// getRouteDb RPC), marshaled through the dispatch loop like every other
// read of mutable state.
func (d *Decision) GetRouteDb() (*routetypes.RouteDb, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		if dec.lastRouteDb == nil {
			return routetypes.NewRouteDb(), nil
		}
		return dec.lastRouteDb, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*routetypes.RouteDb), nil
}

// GetStaticRoutes returns the solver's current static-MPLS table.
func (d *Decision) GetStaticRoutes() (map[int32]routetypes.RibMplsEntry, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		return dec.solver.GetStaticRoutes(), nil
	})
	if err != nil {
		return nil, err
	}
	return val.(map[int32]routetypes.RibMplsEntry), nil
}

// GetAdjacencyDbs returns one area's adjacency databases, or an empty
// map if the area is unknown.
func (d *Decision) GetAdjacencyDbs(area routetypes.Area) (map[NodeName]routetypes.AdjacencyDatabase, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		ls, ok := dec.areaLinkStates[area]
		if !ok {
			return map[NodeName]routetypes.AdjacencyDatabase{}, nil
		}
		return ls.GetAdjacencyDatabases(), nil
	})
	if err != nil {
		return nil, err
	}
	return val.(map[NodeName]routetypes.AdjacencyDatabase), nil
}

// GetAllAdjacencyDbs returns every area's adjacency databases.
func (d *Decision) GetAllAdjacencyDbs() (map[routetypes.Area]map[NodeName]routetypes.AdjacencyDatabase, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		out := make(map[routetypes.Area]map[NodeName]routetypes.AdjacencyDatabase, len(dec.areaLinkStates))
		for area, ls := range dec.areaLinkStates {
			out[area] = ls.GetAdjacencyDatabases()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(map[routetypes.Area]map[NodeName]routetypes.AdjacencyDatabase), nil
}

// GetPrefixDbs returns every known prefix's advertiser set.
func (d *Decision) GetPrefixDbs() (map[netip.Prefix]map[NodeName]routetypes.PrefixEntry, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		out := make(map[netip.Prefix]map[NodeName]routetypes.PrefixEntry)
		for _, p := range dec.prefixState.Prefixes() {
			out[p] = dec.prefixState.Advertisers(p)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(map[netip.Prefix]map[NodeName]routetypes.PrefixEntry), nil
}

// SetRibPolicy implements spec.md §4.7's setRibPolicy RPC: it reports
// "feature disabled" if enable_rib_policy is off, "stale (ttl <= 0)" if
// the policy carries no usable lifetime, else installs the policy and
// returns "success". Installing triggers an immediate debounced
// recompute so the new weighting takes effect promptly.
func (d *Decision) SetRibPolicy(policy *ribpolicy.Policy) (string, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		if !dec.cfg.EnableRibPolicy {
			return "feature disabled", nil
		}
		if policy.TtlSecs <= 0 {
			return "stale (ttl <= 0)", nil
		}
		dec.ribPolicy.Set(policy)
		dec.pendingPrefix = true
		dec.scheduleDebounce()
		return "success", nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// RibPolicyResult is GetRibPolicy's result: Status is "feature
// disabled", "not configured", or "success", with Policy set only in
// the "success" case.
type RibPolicyResult struct {
	Status string
	Policy *ribpolicy.Policy
}

// GetRibPolicy implements spec.md §4.7's getRibPolicy RPC.
func (d *Decision) GetRibPolicy() (RibPolicyResult, error) {
	val, err := d.Env.DispatchWait(func(dec *Decision) (any, error) {
		if !dec.cfg.EnableRibPolicy {
			return RibPolicyResult{Status: "feature disabled"}, nil
		}
		p := dec.ribPolicy.Get()
		if p == nil {
			return RibPolicyResult{Status: "not configured"}, nil
		}
		return RibPolicyResult{Status: "success", Policy: p}, nil
	})
	if err != nil {
		return RibPolicyResult{}, err
	}
	return val.(RibPolicyResult), nil
}

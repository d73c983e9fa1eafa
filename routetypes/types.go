// Package routetypes holds the value types shared by the link-state
// database, the SPF/KSP engine, and the computed route database: nodes,
// adjacencies, prefix advertisements, and the RIB entries the solver
// produces.
package routetypes

import "net/netip"

// NodeName identifies a node in the fabric. It is interned as a plain
// string rather than an index, matching how the teacher addresses peers
// by name (state.NodeId in the teacher repo) rather than numeric handles.
type NodeName string

// Area partitions the link-state database administratively. The default
// area used when a publication carries none.
type Area string

const DefaultArea Area = "0"

// Metric is an additive link-state cost.
type Metric = uint64

// Adjacency describes one directed view of a link, as advertised by its
// owner. Two adjacencies - one from each endpoint, each naming the other
// - must both be present for the link to be usable (the symmetric-
// adjacency invariant).
type Adjacency struct {
	OwnerNode     NodeName
	NeighborNode  NodeName
	LocalIface    string
	NextHopV4     netip.Addr
	NextHopV6     netip.Addr
	Metric        Metric
	AdjacencyLabel int32
	Area          Area
	Up            bool
}

// AdjacencyDatabase is one node's complete adjacency view, as published.
type AdjacencyDatabase struct {
	ThisNode    NodeName
	NodeLabel   int32 // 0 means "non-segment-routing"
	Overloaded  bool
	Adjacencies []Adjacency
}

// PrefixType classifies the origin of a prefix advertisement.
type PrefixType int

const (
	PrefixTypeOpenR PrefixType = iota
	PrefixTypeBGP
	PrefixTypeLoopback
)

// ForwardingType selects whether the prefix forwards over plain IP or
// requires an MPLS label stack.
type ForwardingType int

const (
	ForwardingTypeIP ForwardingType = iota
	ForwardingTypeSRMPLS
)

// ForwardingAlgorithm selects the best-path selection strategy used for
// a prefix.
type ForwardingAlgorithm int

const (
	ForwardingAlgorithmSPECMP ForwardingAlgorithm = iota
	ForwardingAlgorithmKSP2EdECMP
)

// MetricEntityType names a well-known slot in a metric vector. Negative
// values are reserved for entities the core itself synthesizes (see
// MetricEntityOpenrIGPCost).
type MetricEntityType int32

// MetricEntityOpenrIGPCost is the synthetic entity the core appends to a
// BGP candidate's metric vector when bgp_use_igp_metric is enabled. Its
// value must never already be present on an advertised vector.
const MetricEntityOpenrIGPCost MetricEntityType = -1

// CompareType controls how two metric entities at the same priority are
// compared.
type CompareType int

const (
	// CompareTypeWinIfPresent: an entity present on one side and absent
	// on the other makes the side with the entity the winner.
	CompareTypeWinIfPresent CompareType = iota
	// CompareTypeWinIfNotPresent: an entity present on one side and
	// absent on the other makes the side WITHOUT the entity the winner;
	// used for OPENR_IGP_COST, which should not itself override an
	// advertiser lacking it.
	CompareTypeWinIfNotPresent
)

// MetricEntity is one prioritized, ordered list of integer values
// compared element-wise against a peer entity of the same type.
type MetricEntity struct {
	Type               MetricEntityType
	Priority           int64
	CompareType        CompareType
	IsBestPathTieBreaker bool
	Values             []int64
}

// MetricVector is an ordered list of metric entities used to rank BGP
// candidates for the same prefix.
type MetricVector struct {
	Metrics []MetricEntity
}

// PrefixEntry is one node's advertisement of one prefix.
type PrefixEntry struct {
	Prefix              netip.Prefix
	Type                PrefixType
	ForwardingType       ForwardingType
	ForwardingAlgorithm  ForwardingAlgorithm
	MetricVector        *MetricVector
	PrependLabel        *int32
	MinNexthop          *int64
}

// MplsActionCode is the tagged union discriminator for MplsAction.
type MplsActionCode int

const (
	MplsActionPush MplsActionCode = iota
	MplsActionSwap
	MplsActionPHP
	MplsActionPopAndLookup
)

// MplsAction is a sum type over the four label-stack operations a
// next-hop can carry. Only the fields relevant to Code are meaningful.
type MplsAction struct {
	Code   MplsActionCode
	Labels []int32 // PUSH
	Label  int32   // SWAP
}

// NextHop is one forwarding choice for a RIB entry.
type NextHop struct {
	Address        netip.Addr
	Iface          string // empty when not over a physical interface (e.g. static/self routes)
	Metric         Metric
	MplsAction     *MplsAction
	NonShortest    bool // true for LFA / KSP2 non-primary paths
	Area           Area
	AreaSet        bool
}

// Key returns a comparable identity for deduplication in a next-hop set.
func (n NextHop) Key() string {
	action := ""
	if n.MplsAction != nil {
		action = n.MplsAction.String()
	}
	return n.Address.String() + "|" + n.Iface + "|" + action
}

func (a MplsAction) String() string {
	switch a.Code {
	case MplsActionPush:
		return "PUSH"
	case MplsActionSwap:
		return "SWAP"
	case MplsActionPHP:
		return "PHP"
	case MplsActionPopAndLookup:
		return "POP_AND_LOOKUP"
	default:
		return "UNKNOWN"
	}
}

// RibUnicastEntry is a computed unicast route for one prefix.
type RibUnicastEntry struct {
	Prefix          netip.Prefix
	NextHops        []NextHop
	BestPrefixEntry *PrefixEntry // set for BGP-selected prefixes
	DoNotInstall    bool
	BestNextHop     *NextHop // best path's loopback next-hop, BGP only
}

// RibMplsEntry is a computed MPLS label-switched route.
type RibMplsEntry struct {
	Label    int32
	NextHops []NextHop
}

// RouteDb is the solver's output: the full set of unicast and MPLS
// routes computed for one node.
type RouteDb struct {
	Unicast map[netip.Prefix]RibUnicastEntry
	Mpls    map[int32]RibMplsEntry
}

func NewRouteDb() *RouteDb {
	return &RouteDb{
		Unicast: make(map[netip.Prefix]RibUnicastEntry),
		Mpls:    make(map[int32]RibMplsEntry),
	}
}

// RouteDelta is the diff between two RouteDbs, suitable for publication
// to the forwarding-install collaborator.
type RouteDelta struct {
	ThisNode           NodeName
	UnicastRoutesUpdate []RibUnicastEntry
	UnicastRoutesDelete []netip.Prefix
	MplsRoutesUpdate    []RibMplsEntry
	MplsRoutesDelete    []int32
}

// IsMplsLabelValid mirrors the original label-range sanity check: labels
// must be strictly positive and fit in the 20-bit MPLS label space.
func IsMplsLabelValid(label int32) bool {
	return label > 0 && label < (1<<20)
}

package control

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/encodeous/routingd/decision"
	"github.com/encodeous/routingd/routetypes"
)

// JSONCodec decodes the opaque publication values as JSON, satisfying
// decision.Codec. The wire format itself is explicitly out of scope
// for the core (spec.md §1): this is the bundled reference codec used
// by the `run` command's feed, not a mandated transport encoding.
type JSONCodec struct{}

func (JSONCodec) DecodeAdjacencyDatabase(v []byte) (routetypes.AdjacencyDatabase, error) {
	var db routetypes.AdjacencyDatabase
	if err := json.Unmarshal(v, &db); err != nil {
		return db, fmt.Errorf("decoding adjacency database: %w", err)
	}
	return db, nil
}

func (JSONCodec) DecodePrefixDatabase(v []byte) (map[netip.Prefix]routetypes.PrefixEntry, error) {
	var entries []routetypes.PrefixEntry
	if err := json.Unmarshal(v, &entries); err != nil {
		return nil, fmt.Errorf("decoding prefix database: %w", err)
	}
	out := make(map[netip.Prefix]routetypes.PrefixEntry, len(entries))
	for _, e := range entries {
		out[e.Prefix] = e
	}
	return out, nil
}

func (JSONCodec) DecodePrefixEntry(v []byte) (routetypes.PrefixEntry, error) {
	var entry routetypes.PrefixEntry
	if err := json.Unmarshal(v, &entry); err != nil {
		return entry, fmt.Errorf("decoding prefix entry: %w", err)
	}
	return entry, nil
}

func (JSONCodec) DecodeFibTime(v []byte) (time.Duration, error) {
	var ms int64
	if err := json.Unmarshal(v, &ms); err != nil {
		return 0, fmt.Errorf("decoding fib time: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

var _ decision.Codec = JSONCodec{}

package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"

	"github.com/encodeous/routingd/decision"
	"github.com/encodeous/routingd/ribpolicy"
	"github.com/encodeous/routingd/routetypes"
)

// Client dials a running daemon's control socket for one request at a
// time, matching the teacher's IPCGet's one-shot-dial-per-call style.
type Client struct {
	path string
}

func Dial(path string) *Client {
	return &Client{path: path}
}

func (c *Client) call(cmd string, arg any, out any) error {
	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return fmt.Errorf("dialing control socket %s: %w", c.path, err)
	}
	defer conn.Close()

	var argRaw json.RawMessage
	if arg != nil {
		argRaw, err = json.Marshal(arg)
		if err != nil {
			return err
		}
	}
	line, err := json.Marshal(request{Cmd: cmd, Arg: argRaw})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		return err
	}

	resp, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return err
	}
	var r response
	if err := json.Unmarshal(resp, &r); err != nil {
		return err
	}
	if r.Error != "" {
		return fmt.Errorf("daemon: %s", r.Error)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(r.Result, out)
}

func (c *Client) RouteDb() (*routetypes.RouteDb, error) {
	var out routetypes.RouteDb
	if err := c.call("route-db", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StaticRoutes() (map[int32]routetypes.RibMplsEntry, error) {
	out := make(map[int32]routetypes.RibMplsEntry)
	if err := c.call("static-routes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdjacencyDbs returns one area's adjacency databases, or every area's
// if area is empty.
func (c *Client) AdjacencyDbs(area routetypes.Area) (map[routetypes.Area]map[routetypes.NodeName]routetypes.AdjacencyDatabase, error) {
	if area == "" {
		out := make(map[routetypes.Area]map[routetypes.NodeName]routetypes.AdjacencyDatabase)
		if err := c.call("adjacency-dbs", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out map[routetypes.NodeName]routetypes.AdjacencyDatabase
	if err := c.call("adjacency-dbs", area, &out); err != nil {
		return nil, err
	}
	return map[routetypes.Area]map[routetypes.NodeName]routetypes.AdjacencyDatabase{area: out}, nil
}

func (c *Client) PrefixDbs() (map[netip.Prefix]map[routetypes.NodeName]routetypes.PrefixEntry, error) {
	out := make(map[netip.Prefix]map[routetypes.NodeName]routetypes.PrefixEntry)
	if err := c.call("prefix-dbs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetRibPolicy(policy *ribpolicy.Policy) (string, error) {
	var out string
	if err := c.call("set-rib-policy", policy, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) GetRibPolicy() (decision.RibPolicyResult, error) {
	var out decision.RibPolicyResult
	if err := c.call("get-rib-policy", nil, &out); err != nil {
		return decision.RibPolicyResult{}, err
	}
	return out, nil
}

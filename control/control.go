// Package control exposes the Decision engine's RPC surface (spec.md
// §4.7) over a local Unix-domain socket, in the spirit of the teacher's
// line-based UAPI control socket (core/ipc.go) but carrying JSON
// request/response bodies since the RPC surface here is structured
// data, not a handful of inspection strings.
package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/encodeous/routingd/decision"
	"github.com/encodeous/routingd/ribpolicy"
	"github.com/encodeous/routingd/routetypes"
)

// request is one control-socket call: Cmd names the RPC, Arg carries
// its (possibly absent) JSON-encoded argument.
type request struct {
	Cmd string          `json:"cmd"`
	Arg json.RawMessage `json:"arg,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Server accepts control connections and dispatches them onto a
// Decision engine's RPC methods.
type Server struct {
	dec *decision.Decision
	ln  net.Listener
	log *slog.Logger
}

// Serve starts listening on path, removing any stale socket file left
// behind by a prior, uncleanly-terminated run.
func Serve(path string, dec *decision.Decision, log *slog.Logger) (*Server, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on control socket %s: %w", path, err)
	}
	s := &Server{dec: dec, ln: ln, log: log}
	go s.acceptLoop()
	return s, nil
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	line, err := r.ReadBytes('\n')
	if err != nil {
		return
	}
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		writeResponse(conn, response{Error: err.Error()})
		return
	}

	result, err := s.dispatch(req)
	if err != nil {
		writeResponse(conn, response{Error: err.Error()})
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		writeResponse(conn, response{Error: err.Error()})
		return
	}
	writeResponse(conn, response{Result: raw})
}

func writeResponse(conn net.Conn, resp response) {
	enc, err := json.Marshal(resp)
	if err != nil {
		return
	}
	enc = append(enc, '\n')
	_, _ = conn.Write(enc)
}

func (s *Server) dispatch(req request) (any, error) {
	switch req.Cmd {
	case "route-db":
		return s.dec.GetRouteDb()
	case "static-routes":
		return s.dec.GetStaticRoutes()
	case "adjacency-dbs":
		var area routetypes.Area
		if len(req.Arg) > 0 {
			if err := json.Unmarshal(req.Arg, &area); err != nil {
				return nil, err
			}
		}
		if area == "" {
			return s.dec.GetAllAdjacencyDbs()
		}
		return s.dec.GetAdjacencyDbs(area)
	case "prefix-dbs":
		return s.dec.GetPrefixDbs()
	case "set-rib-policy":
		var policy ribpolicy.Policy
		if err := json.Unmarshal(req.Arg, &policy); err != nil {
			return nil, err
		}
		return s.dec.SetRibPolicy(&policy)
	case "get-rib-policy":
		return s.dec.GetRibPolicy()
	default:
		return nil, fmt.Errorf("unknown command %q", req.Cmd)
	}
}

// Package decision implements the orchestrator of spec.md §4.5: it
// owns one LinkState per area, the global PrefixState, the SpfSolver,
// and the optional RibPolicy, consumes the publication and static-MPLS
// streams, drives a debounced recompute, diffs against the last
// published RouteDb, and publishes deltas. Grounded on the teacher's
// single-dispatch-loop architecture (core/runtime.go, state/scheduler.go).
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/encodeous/routingd/config"
	"github.com/encodeous/routingd/linkstate"
	"github.com/encodeous/routingd/metrics"
	"github.com/encodeous/routingd/prefixstate"
	"github.com/encodeous/routingd/ribpolicy"
	"github.com/encodeous/routingd/routetypes"
	"github.com/encodeous/routingd/spfsolver"
	"golang.org/x/sync/errgroup"
)

type NodeName = routetypes.NodeName

// Publication is one inbound update from the replication layer
// (spec.md §6's Publication message).
type Publication struct {
	Area        routetypes.Area
	KeyVals     map[string][]byte
	ExpiredKeys []string
}

// StaticRouteUpdate is one inbound update from the static-MPLS stream.
type StaticRouteUpdate = spfsolver.StaticDelta

// Codec deserializes the opaque publication values into the LSDB's
// value types; the wire format itself is out of scope (spec.md §1), so
// the core depends only on this narrow interface.
type Codec interface {
	DecodeAdjacencyDatabase(v []byte) (routetypes.AdjacencyDatabase, error)
	DecodePrefixDatabase(v []byte) (map[netip.Prefix]routetypes.PrefixEntry, error)
	DecodePrefixEntry(v []byte) (routetypes.PrefixEntry, error)
	DecodeFibTime(v []byte) (time.Duration, error)
}

// Env is the single-execution-context handle every dispatched closure
// runs under, mirroring the teacher's state.Env.
type Env struct {
	Context context.Context
	Cancel  context.CancelCauseFunc

	DispatchChannel chan func(*Decision) error
	Log             *slog.Logger
}

func (e *Env) Dispatch(fun func(*Decision) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(errorf("panic: %v", r))
		}
	}()
	e.DispatchChannel <- fun
}

type dispatchResult struct {
	val any
	err error
}

func (e *Env) DispatchWait(fun func(*Decision) (any, error)) (any, error) {
	ret := make(chan dispatchResult, 1)
	e.DispatchChannel <- func(d *Decision) error {
		val, err := fun(d)
		ret <- dispatchResult{val, err}
		return err
	}
	select {
	case res := <-ret:
		return res.val, res.err
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *Env) ScheduleTask(fun func(*Decision) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		e.Dispatch(fun)
	})
}

func (e *Env) repeatedTask(fun func(*Decision) error, delay time.Duration) {
	for e.Context.Err() == nil {
		e.Dispatch(fun)
		time.Sleep(delay)
	}
}

func (e *Env) RepeatTask(fun func(*Decision) error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}

// Decision is the orchestrator's mutable state, touched only from the
// dispatch loop.
type Decision struct {
	Env *Env

	myNode NodeName
	cfg    config.LocalCfg

	areaLinkStates map[routetypes.Area]*linkstate.LinkState
	prefixState    *prefixstate.PrefixState
	solver         *spfsolver.Solver
	ribPolicy      *ribpolicy.Transformer
	codec          Codec

	lastRouteDb *routetypes.RouteDb

	pendingLinkState bool
	pendingPrefix    bool
	pendingStatic    bool

	fibTimes map[NodeName]time.Duration

	backoff     *backoff.ExponentialBackOff
	debounceSet bool
	coldStarted bool

	outbound chan routetypes.RouteDelta

	pubStream    <-chan Publication
	staticStream <-chan StaticRouteUpdate
}

// New builds a Decision orchestrator without running it; Start builds
// one with New and runs it.
func New(myNode NodeName, cfg config.LocalCfg, areas []routetypes.Area, codec Codec, pubStream <-chan Publication, staticStream <-chan StaticRouteUpdate) *Decision {
	areaLinkStates := make(map[routetypes.Area]*linkstate.LinkState, len(areas))
	for _, a := range areas {
		areaLinkStates[a] = linkstate.New(a, cfg.EnableOrderedFibProgramming)
	}
	if len(areaLinkStates) == 0 {
		areaLinkStates[routetypes.DefaultArea] = linkstate.New(routetypes.DefaultArea, cfg.EnableOrderedFibProgramming)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.DebounceMin()
	bo.MaxInterval = cfg.DebounceMax()
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	d := &Decision{
		myNode:         myNode,
		cfg:            cfg,
		areaLinkStates: areaLinkStates,
		prefixState:    prefixstate.New(),
		solver: spfsolver.New(spfsolver.Config{
			EnableV4:        cfg.EnableV4,
			BgpUseIgpMetric: cfg.BgpUseIgpMetric,
			BgpDryRun:       cfg.BgpDryRun,
			ComputeLfaPaths: cfg.ComputeLfaPaths,
		}),
		codec:        codec,
		fibTimes:     make(map[NodeName]time.Duration),
		backoff:      bo,
		outbound:     make(chan routetypes.RouteDelta, 16),
		pubStream:    pubStream,
		staticStream: staticStream,
	}
	d.ribPolicy = ribpolicy.New(func() {
		d.Env.Dispatch(func(dec *Decision) error { return dec.recompute() })
	})
	return d
}

// Outbound returns the outbound route-delta queue. Spec.md §5 notes
// this queue is multi-consumer; callers wanting fan-out should wrap
// this with their own broadcaster, which is outside the core's scope.
func (d *Decision) Outbound() <-chan routetypes.RouteDelta {
	return d.outbound
}

// Start builds a Decision with New and launches its dispatch loop, the
// stream-reader fibers, and the hold/counter timers, then returns
// without blocking; canceling Env.Context stops the dispatch loop.
func Start(myNode NodeName, cfg config.LocalCfg, areas []routetypes.Area, codec Codec, pubStream <-chan Publication, staticStream <-chan StaticRouteUpdate, logger *slog.Logger) (*Decision, error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*Decision) error)

	d := New(myNode, cfg, areas, codec, pubStream, staticStream)
	d.Env = &Env{
		Context:         ctx,
		Cancel:          cancel,
		DispatchChannel: dispatch,
		Log:             logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.readPublications(gctx) })
	g.Go(func() error { return d.readStaticRoutes(gctx) })

	if cfg.EorTimeS > 0 {
		d.Env.ScheduleTask((*Decision).onColdStartExpiry, cfg.ColdStartGrace())
	} else {
		d.coldStarted = true
	}

	go func() {
		_ = g.Wait()
	}()

	go mainLoop(d, dispatch)

	d.startHoldTimer()
	d.startCounterTimer()

	return d, nil
}

func mainLoop(d *Decision, dispatch <-chan func(*Decision) error) {
	d.Env.Log.Debug("decision: started main loop")
	for {
		select {
		case fun := <-dispatch:
			if err := fun(d); err != nil {
				d.Env.Log.Error("decision: error during dispatch", "error", err)
				metrics.Errors.Add(1)
			}
		case <-d.Env.Context.Done():
			d.Env.Log.Info("decision: stopped main loop")
			d.ribPolicy.Stop()
			close(d.outbound)
			return
		}
	}
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

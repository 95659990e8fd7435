package pktsim

// net.go contains the forwarding engine that carries packets hop by hop
// through the topology, applying stochastic loss and latency,
// decrementing time-to-live, guarding against routing loops, and
// aggregating traffic statistics.
//
// The engine and its scheduler form a cooperative, single-threaded
// simulation loop; a multi-threaded host must serialize access to one
// engine instance.  The Stop flag is the one field another goroutine
// may touch

import (
	"fmt"
	"github.com/iti/evt/vrtime"
	"golang.org/x/exp/slices"
	"sync/atomic"
)

// defaults applied by CreateForwardingEngine
const (
	DfltTTL      int     = 64   // hop budget given to new packets
	DfltLossRate float64 = 0.01 // per-hop probability a packet is lost
)

// default per-hop latency bounds, in seconds (1ms - 10ms)
const (
	dfltLatencyLo float64 = 1e-3
	dfltLatencyHi float64 = 1e-2
)

type floatPair struct {
	x, y float64
}

// TrafficStats holds the process-wide counters the engine maintains for
// its lifetime.  Latencies collects one sample, in seconds, per
// delivered packet.  Reset only on explicit simulation restart
type TrafficStats struct {
	Sent      int
	Delivered int
	Dropped   int
	Latencies []float64
}

// snapshot returns a copy safe to hand to a reporting layer
func (ts *TrafficStats) snapshot() TrafficStats {
	cpy := *ts
	cpy.Latencies = make([]float64, len(ts.Latencies))
	copy(cpy.Latencies, ts.Latencies)
	return cpy
}

// TerminalFunc is called with a packet at the moment it reaches a
// terminal state.  The engine never calls it twice for the same packet
type TerminalFunc func(*Packet)

// ForwardingEngine orchestrates the packet lifecycle
type ForwardingEngine struct {
	topo     Topology
	devs     DeviceModel
	resolver *RoutingResolver
	evtQ     *EventScheduler
	rng      RandomSource

	lossRate float64
	latency  floatPair
	dfltTTL  int

	stats  TrafficStats
	nxtSeq int64

	stopped  atomic.Bool
	terminal TerminalFunc
	traceMgr *TraceManager
}

// CreateForwardingEngine is a constructor.  The random source is
// injected so deterministic tests can replace it
func CreateForwardingEngine(topo Topology, devs DeviceModel, rng RandomSource) *ForwardingEngine {
	fe := new(ForwardingEngine)
	fe.topo = topo
	fe.devs = devs
	fe.rng = rng
	fe.resolver = CreateRoutingResolver(topo, devs)
	fe.evtQ = CreateEventScheduler()
	fe.lossRate = DfltLossRate
	fe.latency = floatPair{x: dfltLatencyLo, y: dfltLatencyHi}
	fe.dfltTTL = DfltTTL
	return fe
}

// SetLossRate assigns the per-hop loss probability.  Values outside
// [0,1] are caller bugs
func (fe *ForwardingEngine) SetLossRate(rate float64) {
	if rate < 0.0 || rate > 1.0 {
		panic(fmt.Errorf("loss rate %g outside [0,1]", rate))
	}
	fe.lossRate = rate
}

// SetLatencyRange assigns the bounds, in seconds, of the uniform
// per-hop latency draw
func (fe *ForwardingEngine) SetLatencyRange(lo, hi float64) {
	if lo < 0.0 || hi < lo {
		panic(fmt.Errorf("latency range (%g,%g) malformed", lo, hi))
	}
	fe.latency = floatPair{x: lo, y: hi}
}

// SetDefaultTTL assigns the hop budget given to new packets
func (fe *ForwardingEngine) SetDefaultTTL(ttl int) {
	if ttl <= 0 {
		panic(fmt.Errorf("non-positive default TTL %d", ttl))
	}
	fe.dfltTTL = ttl
}

// SetTerminalFunc registers a callback invoked at every terminal
// packet transition
func (fe *ForwardingEngine) SetTerminalFunc(f TerminalFunc) {
	fe.terminal = f
}

// SetTraceManager attaches a trace manager that records terminal
// packet events
func (fe *ForwardingEngine) SetTraceManager(tm *TraceManager) {
	fe.traceMgr = tm
}

// Resolver exposes the engine's routing resolver, for clients that
// inspect or seed routing tables directly
func (fe *ForwardingEngine) Resolver() *RoutingResolver {
	return fe.resolver
}

// Now returns the engine's current logical time, in seconds
func (fe *ForwardingEngine) Now() float64 {
	return fe.evtQ.Now()
}

// Stats returns a snapshot of the traffic counters
func (fe *ForwardingEngine) Stats() TrafficStats {
	return fe.stats.snapshot()
}

// UpdateRoute mutates the named router's routing table.  The next hop
// is deliberately not validated for adjacency or existence: a
// misconfigured route producing a loop or black hole is correct
// simulated behavior, detected at forwarding time
func (fe *ForwardingEngine) UpdateRoute(router, destNet, nextHop string, metric int, class RouteClass) error {
	tbl, err := fe.resolver.Table(router)
	if err != nil {
		return err
	}
	tbl.AddRoute(destNet, nextHop, "", metric, class, fe.evtQ.Now())
	return nil
}

// Send creates a packet addressed from source to dest and attempts its
// first hop synchronously.  The returned packet handle is valid
// regardless of outcome; the caller inspects its terminal state from
// the handle or from the registered terminal callback
func (fe *ForwardingEngine) Send(source, dest string, kind PcktKind) (*Packet, error) {
	if !fe.topo.DeviceExists(source) {
		return nil, fmt.Errorf("unknown source device %s", source)
	}
	if !fe.topo.DeviceExists(dest) {
		return nil, fmt.Errorf("unknown destination device %s", dest)
	}

	fe.nxtSeq += 1
	pckt := &Packet{
		Source:    source,
		Dest:      dest,
		Kind:      kind,
		TTL:       fe.dfltTTL,
		Path:      []string{source},
		Seq:       fe.nxtSeq,
		CreatedAt: fe.evtQ.Now(),
		State:     Created,
	}
	fe.stats.Sent += 1

	fe.hopAttempt(pckt)
	return pckt, nil
}

// hopAttempt runs one step of the per-packet state machine.  It is used
// both for the first hop at Send and for every scheduled delivery
func (fe *ForwardingEngine) hopAttempt(pckt *Packet) {
	current := pckt.Path[len(pckt.Path)-1]

	// a packet standing at its destination is delivered; no loss roll
	// or TTL consideration applies to the arrival itself
	if current == pckt.Dest {
		fe.deliver(pckt)
		return
	}

	if fe.rng.UniformFloat(0.0, 1.0) < fe.lossRate {
		fe.drop(pckt, DropLoss)
		return
	}

	nxtHop, found := fe.resolver.NextHop(current, pckt.Dest)
	if !found {
		fe.drop(pckt, DropNoRoute)
		return
	}

	// a next hop already on the path means the routing tables cycle;
	// the unweighted shortest-path fallback cannot produce this, but
	// static and dynamic tables can
	if slices.Contains(pckt.Path, nxtHop) {
		fe.drop(pckt, DropLoop)
		return
	}

	pckt.Path = append(pckt.Path, nxtHop)
	pckt.TTL -= 1
	if pckt.TTL <= 0 {
		fe.drop(pckt, DropTTL)
		return
	}

	latency := fe.rng.UniformFloat(fe.latency.x, fe.latency.y)
	pckt.State = InTransit
	fe.evtQ.Schedule(latency, pckt)
}

// deliver moves a packet to the Delivered terminal state
func (fe *ForwardingEngine) deliver(pckt *Packet) {
	pckt.State = Delivered
	pckt.DeliveredAt = fe.evtQ.Now()
	fe.stats.Delivered += 1
	fe.stats.Latencies = append(fe.stats.Latencies, pckt.DeliveredAt-pckt.CreatedAt)
	fe.finish(pckt)
}

// drop moves a packet to the Dropped terminal state with the given reason
func (fe *ForwardingEngine) drop(pckt *Packet, reason DropReason) {
	pckt.State = Dropped
	pckt.Reason = reason
	fe.stats.Dropped += 1
	fe.finish(pckt)
}

// finish reports a terminal transition to the trace manager and the
// registered callback
func (fe *ForwardingEngine) finish(pckt *Packet) {
	if fe.traceMgr != nil {
		AddPcktTrace(fe.traceMgr, vrtime.SecondsToTime(fe.evtQ.Now()), pckt)
	}
	if fe.terminal != nil {
		fe.terminal(pckt)
	}
}

// Run drives the simulation until the scheduler is empty or Stop is
// called
func (fe *ForwardingEngine) Run() int {
	return fe.RunUntil(0.0, 0)
}

// RunUntil drives the simulation until the scheduler is empty, the
// logical deadline passes (deadline > 0), the event cap is hit
// (maxEvents > 0), or Stop is called.  The number of events processed
// is returned.  Packets still in flight when the loop exits remain
// InTransit; stopping the simulation is not the same as a packet
// failing
func (fe *ForwardingEngine) RunUntil(deadline float64, maxEvents int) int {
	fe.stopped.Store(false)
	processed := 0

	for {
		if fe.stopped.Load() {
			break
		}
		if maxEvents > 0 && processed >= maxEvents {
			break
		}
		nxt, present := fe.evtQ.Peek()
		if !present {
			break
		}
		if deadline > 0.0 && nxt.Time.Seconds() > deadline {
			break
		}
		evt, _ := fe.evtQ.Pop()
		fe.hopAttempt(evt.Pckt)
		processed += 1
	}
	return processed
}

// RunUntilTerminal drives the simulation until the given packet reaches
// a terminal state or no events remain
func (fe *ForwardingEngine) RunUntilTerminal(pckt *Packet) {
	for !pckt.Terminal() {
		evt, present := fe.evtQ.Pop()
		if !present {
			break
		}
		fe.hopAttempt(evt.Pckt)
	}
}

// Stop signals a running loop to exit between hop attempts.  Safe to
// call from another goroutine
func (fe *ForwardingEngine) Stop() {
	fe.stopped.Store(true)
}

// Pending reports how many delivery events remain scheduled
func (fe *ForwardingEngine) Pending() bool {
	return !fe.evtQ.IsEmpty()
}

// Reset restarts the simulation: the clock returns to zero, pending
// events are discarded, counters and the sequence allocator clear.
// Routing tables survive a reset
func (fe *ForwardingEngine) Reset() {
	fe.evtQ = CreateEventScheduler()
	fe.stats = TrafficStats{}
	fe.nxtSeq = 0
	fe.stopped.Store(false)
}
